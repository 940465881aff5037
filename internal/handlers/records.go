package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/road-monitor/internal/db"
	"github.com/ukydev/road-monitor/internal/fanout"
	"github.com/ukydev/road-monitor/internal/models"
)

// RecordsHandler serves the ingest endpoint and CRUD over stored records.
type RecordsHandler struct {
	collection db.RecordCollection
	publisher  fanout.Publisher
}

// NewRecordsHandler creates a records handler backed by the given store and
// delivery publisher.
func NewRecordsHandler(collection db.RecordCollection, publisher fanout.Publisher) *RecordsHandler {
	return &RecordsHandler{
		collection: collection,
		publisher:  publisher,
	}
}

// RegisterRoutes mounts the ingest and CRUD endpoints on the router.
func (h *RecordsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/processed_agent_data", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/processed_agent_data", h.List).Methods(http.MethodGet)
	r.HandleFunc("/processed_agent_data/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/processed_agent_data/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/processed_agent_data/{id}", h.Delete).Methods(http.MethodDelete)
}

// Create ingests an ordered batch of classified readings. Each record is
// stored and then pushed to live subscribers for its user id. Records commit
// independently: a store failure mid-batch fails the call but earlier
// records stay stored.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var batch []models.ProcessedAgentData
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	for _, item := range batch {
		record, err := h.collection.Insert(r.Context(), models.FlattenProcessedAgentData(item))
		if err != nil {
			log.WithError(err).Error("Failed to insert record")
			http.Error(w, "Failed to store record", http.StatusInternalServerError)
			return
		}
		// Best effort; never blocks or fails the ingest call.
		h.publisher.Publish(record.UserID, record)
	}

	writeJSON(w, http.StatusOK, true)
}

// Get returns one stored record by id.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	record, err := h.collection.Get(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).WithField("id", id).Error("Failed to get record")
		http.Error(w, "Failed to get record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// List returns all stored records in insertion order.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.collection.List(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list records")
		http.Error(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.ProcessedAgentDataRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// Update replaces all fields of a stored record and returns the new state.
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var item models.ProcessedAgentData
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.collection.Update(r.Context(), id, models.FlattenProcessedAgentData(item))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).WithField("id", id).Error("Failed to update record")
		http.Error(w, "Failed to update record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Delete removes a stored record and returns its last state.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	record, err := h.collection.Delete(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.WithError(err).WithField("id", id).Error("Failed to delete record")
		http.Error(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid record id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
