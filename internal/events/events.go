// Package events defines the sync lifecycle event envelope and its NATS
// publisher. Publishing is optional; without a configured NATS URL the
// service runs without notifications.
package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Envelope wraps a domain event for transport.
type Envelope struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Data          json.RawMessage `json:"data"`
}

// Event types and subjects.
const (
	TypeSyncCompleted    = "gocardless.sync.completed.v1"
	SubjectSyncCompleted = "gocardless.sync.completed"
)

// SyncCompleted is emitted after a refresh cycle finishes.
type SyncCompleted struct {
	CreditorID       string    `json:"creditor_id"`
	TransactionCount int       `json:"transaction_count"`
	Currencies       []string  `json:"currencies"`
	Since            time.Time `json:"since"`
	CompletedAt      time.Time `json:"completed_at"`
}

// NewEnvelope creates an envelope around a payload.
func NewEnvelope(eventType, aggregateType, aggregateID string, data interface{}) (*Envelope, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		ID:            ulid.Make().String(),
		Type:          eventType,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          dataBytes,
	}, nil
}

// WithCorrelation attaches the request's correlation id.
func (e *Envelope) WithCorrelation(correlationID string) *Envelope {
	e.CorrelationID = correlationID
	return e
}

// DecodeData decodes the event data into a struct.
func (e *Envelope) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
