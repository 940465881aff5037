package db

import (
	"context"
	"sync"

	"github.com/ukydev/road-monitor/internal/models"
)

// MemoryRecordCollection is a mutex-guarded in-memory RecordCollection. It
// keeps the repository mapping testable without a database driver and backs
// the handler tests. Writes are serialized; readers see whole records only.
type MemoryRecordCollection struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]models.ProcessedAgentDataRecord
	order   []int64
}

// NewMemoryRecordCollection returns an empty in-memory collection.
func NewMemoryRecordCollection() *MemoryRecordCollection {
	return &MemoryRecordCollection{
		records: make(map[int64]models.ProcessedAgentDataRecord),
	}
}

// Insert stores a record under the next id and returns the stored state.
func (c *MemoryRecordCollection) Insert(ctx context.Context, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	record.ID = c.nextID
	c.records[record.ID] = record
	c.order = append(c.order, record.ID)
	return record, nil
}

// Get returns the record with the given id.
func (c *MemoryRecordCollection) Get(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	record, ok := c.records[id]
	if !ok {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	return record, nil
}

// List returns all records in insertion order.
func (c *MemoryRecordCollection) List(ctx context.Context) ([]models.ProcessedAgentDataRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]models.ProcessedAgentDataRecord, 0, len(c.records))
	for _, id := range c.order {
		if record, ok := c.records[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// Update replaces all fields of the record with the given id.
func (c *MemoryRecordCollection) Update(ctx context.Context, id int64, record models.ProcessedAgentDataRecord) (models.ProcessedAgentDataRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	record.ID = id
	c.records[id] = record
	return record, nil
}

// Delete removes the record with the given id and returns its last state.
// The id is never handed out again.
func (c *MemoryRecordCollection) Delete(ctx context.Context, id int64) (models.ProcessedAgentDataRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.records[id]
	if !ok {
		return models.ProcessedAgentDataRecord{}, ErrNotFound
	}
	delete(c.records, id)
	return record, nil
}
