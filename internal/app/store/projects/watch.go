// internal/app/store/projects/watch.go
package projectstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelieropen/obratrack/internal/app/system/livefeed"
	"github.com/atelieropen/obratrack/internal/domain/models"
)

// The three live feeds mirror the three ListVisible predicates. Each one
// watches the whole projects collection and evaluates its predicate
// client-side, so a document that stops matching an update produces a
// Remove rather than silently going stale in the merge.

// OwnerFeed emits projects created by the viewer.
func (s *Store) OwnerFeed(viewerID primitive.ObjectID) livefeed.Feed {
	return &changeFeed{
		store:   s,
		name:    "owner",
		match:   func(p models.Project) bool { return p.CreatedBy == viewerID },
		initial: bson.M{"created_by": viewerID},
	}
}

// MemberFeed emits projects whose expanded member list names the viewer.
func (s *Store) MemberFeed(viewerID primitive.ObjectID) livefeed.Feed {
	return &changeFeed{
		store: s,
		name:  "member",
		match: func(p models.Project) bool {
			for _, m := range p.Members {
				if m == viewerID {
					return true
				}
			}
			return false
		},
		initial: bson.M{"members": viewerID},
	}
}

// RoleFeed emits projects that allow the viewer's role.
func (s *Store) RoleFeed(role string) livefeed.Feed {
	return &changeFeed{
		store: s,
		name:  "role",
		match: func(p models.Project) bool {
			for _, r := range p.RolesAllowed {
				if r == role {
					return true
				}
			}
			return false
		},
		initial: bson.M{"roles_allowed": role},
	}
}

// AllFeed emits every project, for viewers holding ViewAllProjects. The
// dashboard runs it alone instead of the trio.
func (s *Store) AllFeed() livefeed.Feed {
	return &changeFeed{
		store:   s,
		name:    "all",
		match:   func(models.Project) bool { return true },
		initial: bson.M{},
	}
}

type changeFeed struct {
	store   *Store
	name    string
	match   func(models.Project) bool
	initial bson.M
}

func (f *changeFeed) Name() string { return f.name }

// changeEvent is the slice of a change stream document we act on.
type changeEvent struct {
	OperationType string         `bson:"operationType"`
	FullDocument  models.Project `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

// Run delivers the initial matching set as Upserts, then follows the
// collection's change stream until ctx is cancelled. Updates that leave
// the predicate emit Remove; deletes always emit Remove.
func (f *changeFeed) Run(ctx context.Context, onEvent func(livefeed.Event), onError func(error)) {
	// Open the stream before the initial read so writes landing between
	// the two are not lost; the stream replays them as updates.
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := f.store.c.Watch(ctx, mongoPipelineAllOps(), opts)
	if err != nil {
		onError(err)
		return
	}
	defer stream.Close(ctx)

	initial, err := f.store.find(ctx, f.initial)
	if err != nil {
		onError(err)
		return
	}
	for _, p := range initial {
		onEvent(livefeed.Event{Type: livefeed.Upsert, Key: p.ID.Hex(), Doc: p})
	}

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			onError(err)
			continue
		}

		switch ev.OperationType {
		case "delete":
			onEvent(livefeed.Event{Type: livefeed.Remove, Key: ev.DocumentKey.ID.Hex()})
		case "insert", "update", "replace":
			key := ev.FullDocument.ID.Hex()
			if ev.FullDocument.ID.IsZero() {
				// Lookup raced a delete; the delete event follows.
				continue
			}
			if f.match(ev.FullDocument) {
				onEvent(livefeed.Event{Type: livefeed.Upsert, Key: key, Doc: ev.FullDocument})
			} else {
				onEvent(livefeed.Event{Type: livefeed.Remove, Key: key})
			}
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		onError(err)
	}
}

func mongoPipelineAllOps() bson.A {
	return bson.A{bson.M{"$match": bson.M{
		"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
	}}}
}
