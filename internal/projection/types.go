package projection

import (
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/rules"
	"github.com/google/uuid"
)

// StateRequest selects the aggregate to rebuild and the checkpoint to fold from.
type StateRequest struct {
	AggregateID uuid.UUID
	Cutoff      orderkey.Cutoff
}

// FailureView is one event the rules rejected, as rendered to clients.
type FailureView struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	OrderKey  string `json:"order_key"`
	Reason    string `json:"reason"`
}

// StateResponse is the folded state of an aggregate.
type StateResponse struct {
	AggregateID string        `json:"aggregate_id"`
	After       string        `json:"after"`
	State       rules.State   `json:"state"`
	Failures    []FailureView `json:"failures"`
	EventCount  int64         `json:"event_count"`

	// LastOrderKey is the key of the last event read, rejected or not.
	// Empty when no event follows the cutoff.
	LastOrderKey string `json:"last_order_key,omitempty"`
}
