// Package sagalog records every state transition of an order placement so an
// operator can see how far a placement got and which trace it belongs to.
package sagalog

import "time"

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// SagaLog is one appended row. Rows are never updated.
type SagaLog struct {
	// SagaID is the order id.
	SagaID string
	Status Status
	// CurrentStep names the step that just finished or failed.
	CurrentStep string
	// Payload is the JSON request that started the placement; only set on STARTED.
	Payload string
	// ErrorMessages is a JSON array, "[]" when nothing failed.
	ErrorMessages string
	TraceID       string
	SpanID        string
	UpdatedAt     time.Time
}
