// Package classifier derives the road surface state from a single
// accelerometer sample.
package classifier

import "github.com/ukydev/road-monitor/internal/models"

// rule maps one accelerometer sample to a road state when its condition
// holds. Rules are evaluated in order and the first match wins, so a reading
// exceeding both thresholds classifies by the earlier rule.
type rule struct {
	state string
	match func(models.Accelerometer) bool
}

// rules is the ordered threshold chain. Append new rules; never reorder,
// existing recorded expectations depend on the y-before-z priority.
var rules = []rule{
	{state: models.RoadStatePit, match: func(a models.Accelerometer) bool { return a.Y > 5 }},
	{state: models.RoadStateWaves, match: func(a models.Accelerometer) bool { return a.Z > 5 }},
}

// Classify returns the road state for one reading. It is pure and total:
// readings matching no rule are normal.
func Classify(data models.AgentData) string {
	for _, r := range rules {
		if r.match(data.Accelerometer) {
			return r.state
		}
	}
	return models.RoadStateNormal
}

// Process wraps a reading with its classified road state.
func Process(data models.AgentData) models.ProcessedAgentData {
	return models.ProcessedAgentData{
		RoadState: Classify(data),
		AgentData: data,
	}
}
