package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const mongoDuplicateKeyCode = 11000

// MongoStore persists documents in MongoDB, using the document id as _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore wraps a connected database handle.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db}
}

// ExistingIDs implements DocumentStore.
func (s *MongoStore) ExistingIDs(ctx context.Context, collection string, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	cursor, err := s.db.Collection(collection).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find existing ids in %s: %w", collection, err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode existing id: %w", err)
		}
		existing[row.ID] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing ids in %s: %w", collection, err)
	}
	return existing, nil
}

// CommitBatch implements DocumentStore. Creation relies on the unique _id
// index, so concurrent writers cannot both create the same document.
func (s *MongoStore) CommitBatch(ctx context.Context, collection string, docs []Document, overwrite bool) (CommitResult, error) {
	if len(docs) == 0 {
		return CommitResult{}, nil
	}
	coll := s.db.Collection(collection)
	if overwrite {
		return s.replaceAll(ctx, coll, docs)
	}

	payload := make([]interface{}, len(docs))
	for i, doc := range docs {
		payload[i] = toMongoDocument(doc)
	}

	res, err := coll.InsertMany(ctx, payload, options.InsertMany().SetOrdered(false))
	if err == nil {
		return CommitResult{Written: len(res.InsertedIDs)}, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return CommitResult{}, fmt.Errorf("insert into %s: %w", collection, err)
	}

	result := CommitResult{Written: len(docs) - len(bulkErr.WriteErrors)}
	var failures int
	for _, we := range bulkErr.WriteErrors {
		if we.Code == mongoDuplicateKeyCode {
			result.Conflicts++
			continue
		}
		failures++
	}
	if failures > 0 || bulkErr.WriteConcernError != nil {
		return result, fmt.Errorf("insert into %s: %d documents rejected: %w", collection, failures, err)
	}
	return result, nil
}

func (s *MongoStore) replaceAll(ctx context.Context, coll *mongo.Collection, docs []Document) (CommitResult, error) {
	writes := make([]mongo.WriteModel, len(docs))
	for i, doc := range docs {
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(toMongoDocument(doc)).
			SetUpsert(true)
	}

	res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	var result CommitResult
	if res != nil {
		result.Written = int(res.MatchedCount + res.UpsertedCount)
	}
	if err != nil {
		return result, fmt.Errorf("replace into %s: %w", coll.Name(), err)
	}
	return result, nil
}

// Get implements DocumentStore.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (models.Record, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrRecordNotFound, collection+"/"+id+" not found")
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return fromMongoDocument(raw)
}

// Query implements DocumentStore.
func (s *MongoStore) Query(ctx context.Context, collection string, filters ...Filter) ([]models.Record, error) {
	filter := bson.D{}
	for _, f := range filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	records := make([]models.Record, 0)
	for cursor.Next(ctx) {
		rec, err := fromMongoDocument(cursor.Current)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return records, nil
}

// Close implements DocumentStore.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func toMongoDocument(doc Document) bson.M {
	out := make(bson.M, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out["_id"] = doc.ID
	return out
}

// fromMongoDocument converts through relaxed extended JSON so records keep the
// same plain JSON types every other backend returns.
func fromMongoDocument(raw bson.Raw) (models.Record, error) {
	payload, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert mongo document: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode mongo document: %w", err)
	}
	delete(rec, "_id")
	return rec, nil
}
