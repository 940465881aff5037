package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Road surface states assigned by the classifier.
const (
	RoadStateNormal = "normal"
	RoadStatePit    = "pit"
	RoadStateWaves  = "waves"
)

// ErrInvalidTimestamp is returned when a reading carries a timestamp that is
// not in ISO 8601 format.
var ErrInvalidTimestamp = errors.New("invalid timestamp format, expected ISO 8601")

// Accelerometer holds one three-axis acceleration sample.
type Accelerometer struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
	Z float64 `bson:"z" json:"z"`
}

// Gps holds one GPS fix.
type Gps struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Parking is a replayed parking marker: free spots observed at a location.
type Parking struct {
	EmptyCount int `json:"empty_count"`
	Gps        Gps `json:"gps"`
}

// AgentData is one telemetry reading reported by an agent.
type AgentData struct {
	UserID        int64         `bson:"user_id" json:"user_id"`
	Accelerometer Accelerometer `bson:"accelerometer" json:"accelerometer"`
	Gps           Gps           `bson:"gps" json:"gps"`
	Timestamp     time.Time     `bson:"timestamp" json:"timestamp"`
}

// ProcessedAgentData is a reading plus the road state derived from it.
type ProcessedAgentData struct {
	RoadState string    `bson:"road_state" json:"road_state"`
	AgentData AgentData `bson:"agent_data" json:"agent_data"`
}

// timestampLayouts are tried in order when decoding a reading. Agents send
// RFC 3339; recorded fixtures use bare ISO 8601 without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO 8601 timestamp string.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// UnmarshalJSON decodes a reading, validating the timestamp before anything
// reaches the store.
func (d *AgentData) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID        int64         `json:"user_id"`
		Accelerometer Accelerometer `json:"accelerometer"`
		Gps           Gps           `json:"gps"`
		Timestamp     string        `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	*d = AgentData{
		UserID:        raw.UserID,
		Accelerometer: raw.Accelerometer,
		Gps:           raw.Gps,
		Timestamp:     ts,
	}
	return nil
}
