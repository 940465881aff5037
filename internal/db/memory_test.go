package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ukydev/road-monitor/internal/models"
)

func sampleRecord(userID int64, roadState string) models.ProcessedAgentDataRecord {
	return models.ProcessedAgentDataRecord{
		RoadState: roadState,
		UserID:    userID,
		X:         0.1,
		Y:         6.0,
		Z:         0.3,
		Latitude:  50.45,
		Longitude: 30.52,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryInsertGet_RoundTrip(t *testing.T) {
	coll := NewMemoryRecordCollection()
	ctx := context.Background()

	stored, err := coll.Insert(ctx, sampleRecord(12, models.RoadStatePit))
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
	if got != stored {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, stored)
	}
}

func TestMemoryGet_UnknownID(t *testing.T) {
	coll := NewMemoryRecordCollection()
	_, err := coll.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryDelete_ThenGet(t *testing.T) {
	coll := NewMemoryRecordCollection()
	ctx := context.Background()

	stored, _ := coll.Insert(ctx, sampleRecord(12, models.RoadStateNormal))

	deleted, err := coll.Delete(ctx, stored.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != stored {
		t.Errorf("delete returned %+v, want last state %+v", deleted, stored)
	}

	if _, err := coll.Get(ctx, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := coll.Delete(ctx, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryIDs_MonotonicNeverReused(t *testing.T) {
	coll := NewMemoryRecordCollection()
	ctx := context.Background()

	first, _ := coll.Insert(ctx, sampleRecord(1, models.RoadStateNormal))
	second, _ := coll.Insert(ctx, sampleRecord(2, models.RoadStateNormal))
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}

	if _, err := coll.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	third, _ := coll.Insert(ctx, sampleRecord(3, models.RoadStateNormal))
	if third.ID <= second.ID {
		t.Errorf("id %d reused after deleting %d", third.ID, second.ID)
	}
}

func TestMemoryList_InsertionOrder(t *testing.T) {
	coll := NewMemoryRecordCollection()
	ctx := context.Background()

	states := []string{models.RoadStateNormal, models.RoadStatePit, models.RoadStateWaves}
	for i, state := range states {
		if _, err := coll.Insert(ctx, sampleRecord(int64(i), state)); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	records, err := coll.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != len(states) {
		t.Fatalf("expected %d records, got %d", len(states), len(records))
	}
	for i, record := range records {
		if record.RoadState != states[i] {
			t.Errorf("position %d: got %q, want %q", i, record.RoadState, states[i])
		}
	}
}

func TestMemoryUpdate_ReplacesAllFields(t *testing.T) {
	coll := NewMemoryRecordCollection()
	ctx := context.Background()

	stored, _ := coll.Insert(ctx, sampleRecord(12, models.RoadStateNormal))

	replacement := sampleRecord(13, models.RoadStateWaves)
	updated, err := coll.Update(ctx, stored.ID, replacement)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != stored.ID {
		t.Errorf("update changed id: %d", updated.ID)
	}
	if updated.UserID != 13 || updated.RoadState != models.RoadStateWaves {
		t.Errorf("fields not replaced: %+v", updated)
	}

	got, _ := coll.Get(ctx, stored.ID)
	if got != updated {
		t.Errorf("stored state %+v, want %+v", got, updated)
	}
}

func TestMemoryUpdate_UnknownID(t *testing.T) {
	coll := NewMemoryRecordCollection()
	_, err := coll.Update(context.Background(), 99, sampleRecord(12, models.RoadStatePit))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
