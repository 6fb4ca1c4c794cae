package events

import (
	"encoding/json"
	"time"
)

// Event types pushed to status stream subscribers.
const (
	TypePing           = "ping"
	TypeCycleCompleted = "cycle.completed"
	TypeCycleFailed    = "cycle.failed"
	TypeCycleSkipped   = "cycle.skipped"
)

const version = 1

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	CycleID string          `json:"cycle_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes an event envelope as a single JSON line.
func MakeEvent(typ, cycleID string, data any) string {
	e := Event{
		Type:    typ,
		Version: version,
		At:      time.Now().UTC(),
		CycleID: cycleID,
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
	b, _ := json.Marshal(e)
	return string(b)
}
