// Package mongo stores collections in a MongoDB database. Every document
// carries the owner in "user_id" and is addressed by the owner plus the
// collection's id field.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lifeos/internal/storage"
)

// OwnerField is the document field holding the owner identity.
const OwnerField = "user_id"

// Store is a MongoDB-backed storage.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Open connects to uri, verifies the connection and ensures the per-owner
// unique indexes exist.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty mongo uri")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	for _, c := range storage.Collections {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: OwnerField, Value: 1}, {Key: c.IDField, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := s.db.Collection(c.Name).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("index %s: %w", c.Name, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Load returns the owner's documents in natural order with driver types
// converted to plain Go values.
func (s *Store) Load(ctx context.Context, scope storage.Scope) ([]storage.Document, error) {
	cur, err := s.db.Collection(scope.Collection.Name).Find(ctx,
		bson.M{OwnerField: scope.Owner},
		options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", scope, err)
	}
	defer cur.Close(ctx)

	docs := []storage.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			s.logger.Warn("skipping undecodable document",
				slog.String("scope", scope.String()),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, Plain(raw).(map[string]any))
	}
	return docs, cur.Err()
}

// Persist applies the retired keys, upserts and deletes of change as one
// ordered bulk write. The snapshot is ignored.
func (s *Store) Persist(ctx context.Context, scope storage.Scope, change storage.Change) error {
	if len(change.Upserts) == 0 && len(change.Deletes) == 0 && len(change.Retire) == 0 {
		return nil
	}

	idField := scope.Collection.IDField
	writes := make([]mongo.WriteModel, 0, len(change.Retire)+len(change.Upserts)+len(change.Deletes))
	for _, k := range change.Retire {
		writes = append(writes, mongo.NewDeleteManyModel().SetFilter(retireFilter(scope, k)))
	}
	for _, doc := range change.Upserts {
		id, err := storage.DocumentID(scope.Collection, doc)
		if err != nil {
			return err
		}
		replacement := bson.M{OwnerField: scope.Owner}
		for k, v := range doc {
			if k != "_id" {
				replacement[k] = v
			}
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{OwnerField: scope.Owner, idField: id}).
			SetReplacement(replacement).
			SetUpsert(true))
	}
	for _, id := range change.Deletes {
		writes = append(writes, mongo.NewDeleteOneModel().
			SetFilter(bson.M{OwnerField: scope.Owner, idField: id}))
	}

	if _, err := s.db.Collection(scope.Collection.Name).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write %s: %w", scope, err)
	}
	return nil
}

// retireFilter selects the legacy document of k and never the canonical
// one, which carries the id as a string.
func retireFilter(scope storage.Scope, k storage.LegacyKey) bson.M {
	idField := scope.Collection.IDField
	filter := bson.M{OwnerField: scope.Owner, k.Field: k.Value}
	if k.Field != idField {
		filter[idField] = bson.M{"$ne": k.ID}
	}
	return filter
}

// Plain converts decoded BSON values into the plain Go values the
// normalizer understands.
func Plain(v any) any {
	switch x := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Plain(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Plain(val)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = Plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Plain(val)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return int64(x)
	}
	return v
}
