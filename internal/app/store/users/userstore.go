// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelieropen/obratrack/internal/app/system/authz"
	"github.com/atelieropen/obratrack/internal/app/system/normalize"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when creating or updating a user with an
	// email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New("unknown role")
	errMissingEmail   = errors.New("email is required")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields.
// The caller supplies PasswordHash already hashed.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.FullName = normalize.Name(u.FullName)
	u.Role = normalize.Role(u.Role)

	if u.Email == "" {
		return models.User{}, errMissingEmail
	}
	if !authz.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.FullName == "" {
		u.FullName = u.DisplayName()
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update holds the editable fields of a user. Role changes here do not
// touch existing projects' derived members; those are recomputed only when
// a project's assignments are next saved.
type Update struct {
	Email     string
	FirstName string
	LastName  string
	FullName  string
	Role      string
}

// Apply updates a user's profile fields. Returns ErrDuplicateEmail if the
// email belongs to another account.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, upd Update) error {
	role := normalize.Role(upd.Role)
	if !authz.IsValidRole(role) {
		return errBadRole
	}
	email := normalize.Email(upd.Email)
	if email == "" {
		return errMissingEmail
	}

	fullName := normalize.Name(upd.FullName)
	if fullName == "" {
		fullName = normalize.Name(upd.FirstName + " " + upd.LastName)
	}

	set := bson.M{
		"email":      email,
		"first_name": normalize.Name(upd.FirstName),
		"last_name":  normalize.Name(upd.LastName),
		"full_name":  fullName,
		"role":       role,
		"updated_at": time.Now().UTC(),
	}

	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	return err
}

// SetActive flips the active flag. Deactivated users keep their documents
// (and any project assignments naming them) but can no longer sign in.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active":     active,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SetPasswordHash replaces the stored password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// Delete removes the user document permanently. Projects referencing the
// user keep their assignment entries; those entries simply stop matching
// anything on the next membership expansion.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// List returns every user ordered by full name.
func (s *Store) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Snapshot returns the roster the membership resolver expands role-kind
// assignments against: every user's ID and current role. The snapshot is
// taken fresh for each project save; if this read fails, the save fails
// before any project write happens.
func (s *Store) Snapshot(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "role": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
