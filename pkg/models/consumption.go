package models

import "time"

// ConsumptionRecord represents one source's energy consumption so far today
type ConsumptionRecord struct {
	Source    string    `json:"source"`    // e.g. a lounge or meter name
	Timestamp time.Time `json:"timestamp"` // Time of the last meter check
	Actual    int       `json:"actual"`    // kWh consumed so far
	Goal      int       `json:"goal"`      // kWh allowed so far
	Warning   int       `json:"warning"`   // kWh above which the goal is only barely made
}

// Status classifies actual consumption against the goal and warning thresholds
type Status int

const (
	UnderGoal Status = iota
	NearGoal
	OverGoal
)

// Classify compares actual against goal, then warning. Both comparisons are strict.
func (r ConsumptionRecord) Classify() Status {
	switch {
	case r.Actual > r.Goal:
		return OverGoal
	case r.Actual > r.Warning:
		return NearGoal
	default:
		return UnderGoal
	}
}

// String returns the lower-case state name published to Home Assistant
func (s Status) String() string {
	switch s {
	case OverGoal:
		return "over_goal"
	case NearGoal:
		return "near_goal"
	case UnderGoal:
		return "under_goal"
	default:
		return "unknown"
	}
}

// Color returns the stoplight color for the status
func (s Status) Color() string {
	switch s {
	case OverGoal:
		return "red"
	case NearGoal:
		return "yellow"
	default:
		return "green"
	}
}
