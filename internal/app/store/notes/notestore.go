// internal/app/store/notes/notestore.go
package notestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notes")}
}

// ErrEmptyBody is returned when a note body is empty after sanitization.
var ErrEmptyBody = errors.New("note body must not be empty")

// Create inserts a note. The caller sanitizes Body before calling.
func (s *Store) Create(ctx context.Context, projectID, authorID primitive.ObjectID, body string) (models.Note, error) {
	if body == "" {
		return models.Note{}, ErrEmptyBody
	}

	now := time.Now().UTC()
	note := models.Note{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, note); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

// Get loads a note by ID. Returns mongo.ErrNoDocuments if absent.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	var n models.Note
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByProject returns a project's notes, newest first.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var notes []models.Note
	if err := cur.All(ctx, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SetBody replaces a note's body. The caller checks authorship first.
func (s *Store) SetBody(ctx context.Context, id primitive.ObjectID, body string) error {
	if body == "" {
		return ErrEmptyBody
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"body":       body,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes one note.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByProject removes every note on a project. Called when the project
// itself is deleted so notes do not outlive it.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
