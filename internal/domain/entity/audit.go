package entity

import "time"

// AuditRecord is an immutable trail entry describing a mutation to a
// budget or category. Diff holds a JSON object of changed fields with
// their before and after values.
type AuditRecord struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	Diff       string    `json:"diff"`
	RecordedAt time.Time `json:"recorded_at"`
}
