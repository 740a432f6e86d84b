package session

import "github.com/molehit/molehit/internal/domain/target"

// EventType discriminates gameplay events on the wire.
type EventType string

const (
	EventTargetSpawned EventType = "target_spawned"
	EventTargetExpired EventType = "target_expired"
	EventTargetHit     EventType = "target_hit"
	EventTimeUpdated   EventType = "time_updated"
	EventSessionEnded  EventType = "session_ended"
)

// TargetView is the wire shape of a target. Char is a string so the
// JSON stays readable for non-ASCII character sets.
type TargetView struct {
	ID        string  `json:"id"`
	Char      string  `json:"char"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SpawnedAt int64   `json:"spawnedAtMs"`
	Deadline  int64   `json:"deadlineMs"`
	State     string  `json:"state"`
}

func viewOf(t *target.Target) TargetView {
	return TargetView{
		ID:        t.ID,
		Char:      t.CharString(),
		X:         t.X,
		Y:         t.Y,
		SpawnedAt: t.SpawnedAt,
		Deadline:  t.Deadline,
		State:     string(t.State),
	}
}

// Event is a single gameplay event. Only the fields relevant to the
// event's type are populated.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	AtMs      int64     `json:"atMs"`

	Target      *TargetView       `json:"target,omitempty"`
	TargetID    string            `json:"targetId,omitempty"`
	Points      int               `json:"points,omitempty"`
	Combo       int               `json:"combo,omitempty"`
	RemainingMs int64             `json:"remainingMs,omitempty"`
	Result      *CompletedSession `json:"result,omitempty"`
}

// Sink receives gameplay events. Implementations must not block; the
// session publishes while holding its lock.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }
