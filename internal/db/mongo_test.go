package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ukydev/road-monitor/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	os.Setenv("MONGO_URI", "mongodb://bad:uri")
	defer os.Unsetenv("MONGO_URI")
	client, err := ConnectMongo()
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

// Integration test (requires running MongoDB)
func TestMongoRecordCollection_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer client.Disconnect(ctx)

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "road_monitor_test"
	}
	coll := NewMongoRecordCollection(client.Database(dbName))

	record := models.ProcessedAgentDataRecord{
		RoadState: models.RoadStatePit,
		UserID:    12,
		Y:         6,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	stored, err := coll.Insert(ctx, record)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if stored.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := coll.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.RoadState != models.RoadStatePit || got.UserID != 12 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	second, err := coll.Insert(ctx, record)
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if second.ID <= stored.ID {
		t.Errorf("ids not increasing: %d then %d", stored.ID, second.ID)
	}

	if _, err := coll.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := coll.Get(ctx, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := coll.Delete(ctx, second.ID); err != nil {
		t.Fatalf("cleanup delete failed: %v", err)
	}
}
