package types

import "time"

// Entity carries record timestamps for persisted Membership objects.
// The engine stamps them from its injected clock, never from time.Now, so
// tests with a fake clock see deterministic values.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped at now.
func NewEntity(now time.Time) Entity {
	now = now.UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch sets UpdatedAt to now.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}
