package v1

import (
	"fmt"
	"time"

	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/google/uuid"
)

// Event is one immutable fact in an aggregate's history.
// It separates the "Envelope" (System Attributes) from the "Letter" (Data).
type Event struct {
	// --- System Attributes (The Envelope) ---

	// ID is the client-supplied identifier of the event.
	// It MUST be unique per AggregateID so appends are idempotent.
	ID string `json:"id"`

	// AggregateID names the aggregate the event belongs to and is the partition
	// key of the event log. Taken from the request path on ingestion.
	AggregateID uuid.UUID `json:"aggregate_id"`

	// OrderKey positions the event in its aggregate's history.
	// Assigned by the store on append; strictly increasing per aggregate.
	OrderKey orderkey.OrderKey `json:"order_key"`

	// Type is the domain-specific event name (e.g., "account.credited").
	Type string `json:"type"`

	// SchemaVersion allows for evolving the 'Data' structure over time without breaking consumers.
	SchemaVersion int `json:"schema_version"`

	// OccurredAt is when the event happened in the real world (client-side clock).
	// The order key is derived from it.
	OccurredAt time.Time `json:"occurred_at"`

	// RecordedAt is when the event was appended (server-side clock).
	RecordedAt time.Time `json:"recorded_at"`

	// Metadata is a generic key-value store for context (e.g., source, trace_id).
	Metadata map[string]string `json:"metadata,omitempty"`

	// --- User Payload (The Letter) ---

	// Data is the domain-specific payload. Only accumulators look inside it.
	Data map[string]interface{} `json:"data"`
}

// Validate ensures the event has all required system attributes.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if e.AggregateID == uuid.Nil {
		return fmt.Errorf("aggregate_id is required")
	}

	if e.Type == "" {
		return fmt.Errorf("type is required")
	}

	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}

	return nil
}
