package models

import "time"

// ProcessedAgentDataRecord is the persisted shape of a classified reading,
// flattened to one row: id | road_state | user_id | x y z | latitude
// longitude | timestamp. The ID is assigned by the store on insert.
type ProcessedAgentDataRecord struct {
	ID        int64     `bson:"_id" json:"id"`
	RoadState string    `bson:"road_state" json:"road_state"`
	UserID    int64     `bson:"user_id" json:"user_id"`
	X         float64   `bson:"x" json:"x"`
	Y         float64   `bson:"y" json:"y"`
	Z         float64   `bson:"z" json:"z"`
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// FlattenProcessedAgentData converts a classified reading to its persisted
// shape. The returned record has no ID yet.
func FlattenProcessedAgentData(data ProcessedAgentData) ProcessedAgentDataRecord {
	return ProcessedAgentDataRecord{
		RoadState: data.RoadState,
		UserID:    data.AgentData.UserID,
		X:         data.AgentData.Accelerometer.X,
		Y:         data.AgentData.Accelerometer.Y,
		Z:         data.AgentData.Accelerometer.Z,
		Latitude:  data.AgentData.Gps.Latitude,
		Longitude: data.AgentData.Gps.Longitude,
		Timestamp: data.AgentData.Timestamp,
	}
}
