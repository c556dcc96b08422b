// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup (EnsureSchema hook). Each ensure* function is
idempotent: CreateMany on an existing identical index is a no-op server-side.
Errors are aggregated so every problem is visible and startup fails fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	if err := ensureUsers(ctx, db, logger); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProjects(ctx, db, logger); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureNotes(ctx, db, logger); err != nil {
		problems = append(problems, "notes: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("users"), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("by_role"),
		},
	})
}

// Project indexes back the three visibility queries: ownership, membership
// (multikey over the members array), and role (multikey over roles_allowed).
func ensureProjects(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("projects"), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("by_created_by"),
		},
		{
			Keys:    bson.D{{Key: "members", Value: 1}},
			Options: options.Index().SetName("by_members"),
		},
		{
			Keys:    bson.D{{Key: "roles_allowed", Value: 1}},
			Options: options.Index().SetName("by_roles_allowed"),
		},
	})
}

func ensureNotes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("notes"), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_project_created"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("by_author"),
		},
	})
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, logger *zap.Logger, models []mongo.IndexModel) error {
	names, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	logger.Info("ensured indexes",
		zap.String("collection", coll.Name()),
		zap.Strings("indexes", names))
	return nil
}
