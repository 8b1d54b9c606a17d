package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Outbox event types emitted by the prescription workflow.
const (
	EventPrescriptionCreated  = "PRESCRIPTION_CREATED"
	EventPrescriptionApproved = "PRESCRIPTION_APPROVED"
	EventPrescriptionIssued   = "PRESCRIPTION_ISSUED"
	EventPrescriptionDeleted  = "PRESCRIPTION_DELETED"
	EventBloodworkCompleted   = "BLOODWORK_COMPLETED"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and published to the broker by the worker binary.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	RetryCount  int             `db:"retry_count" json:"retry_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
