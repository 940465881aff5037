package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/road-monitor/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no record exists for a requested id.
var ErrNotFound = errors.New("record not found")

// RecordCollection defines the repository contract for processed agent data.
// Insert assigns a fresh monotonically increasing id; ids are never reused,
// even after Delete. Get, Update and Delete return ErrNotFound for unknown
// ids.
type RecordCollection interface {
	Insert(ctx context.Context, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error)
	Get(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error)
	List(ctx context.Context) ([]models.ProcessedAgentDataRecord, error)
	Update(ctx context.Context, id int64, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error)
	Delete(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error)
}

// MongoRecordCollection implements RecordCollection against MongoDB. Record
// ids come from an atomically incremented counter document, which keeps them
// monotonic across deletes and across processes sharing the database.
type MongoRecordCollection struct {
	Records  *mongo.Collection
	Counters *mongo.Collection
}

// NewMongoRecordCollection wires the records and counters collections of the
// given database.
func NewMongoRecordCollection(database *mongo.Database) *MongoRecordCollection {
	return &MongoRecordCollection{
		Records:  database.Collection("processed_agent_data"),
		Counters: database.Collection("counters"),
	}
}

// nextID atomically increments and returns the record id sequence.
func (c *MongoRecordCollection) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": "processed_agent_data"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next record id: %w", err)
	}
	return counter.Seq, nil
}

// Insert stores a record under a freshly assigned id and returns the stored
// state.
func (c *MongoRecordCollection) Insert(ctx context.Context, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error) {
	id, err := c.nextID(ctx)
	if err != nil {
		return models.ProcessedAgentDataRecord{}, err
	}
	record.ID = id
	if _, err := c.Records.InsertOne(ctx, record); err != nil {
		return models.ProcessedAgentDataRecord{}, fmt.Errorf("insert record: %w", err)
	}
	return record, nil
}

// Get returns the record with the given id.
func (c *MongoRecordCollection) Get(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error) {
	var record models.ProcessedAgentDataRecord
	err := c.Records.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ProcessedAgentDataRecord{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return record, nil
}

// List returns all records in insertion order (ascending id).
func (c *MongoRecordCollection) List(ctx context.Context) ([]models.ProcessedAgentDataRecord, error) {
	cursor, err := c.Records.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var records []models.ProcessedAgentDataRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update replaces all fields of the record with the given id.
func (c *MongoRecordCollection) Update(ctx context.Context, id int64, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error) {
	record.ID = id
	result, err := c.Records.ReplaceOne(ctx, bson.M{"_id": id}, record)
	if err != nil {
		return models.ProcessedAgentDataRecord{}, fmt.Errorf("update record %d: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	return record, nil
}

// Delete removes the record with the given id and returns its last state.
func (c *MongoRecordCollection) Delete(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error) {
	var record models.ProcessedAgentDataRecord
	err := c.Records.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ProcessedAgentDataRecord{}, fmt.Errorf("delete record %d: %w", id, err)
	}
	return record, nil
}
