package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit action labels recorded by the workflow.
const (
	AuditTransactionCreated  = "TRANSACTION_CREATED"
	AuditTransactionVerified = "TRANSACTION_VERIFIED"
	AuditTransactionRejected = "TRANSACTION_REJECTED"
	AuditSwiftSubmission     = "SWIFT_SUBMISSION"
)

// AuditEntry is an append-only record of who did what. TransactionID is nil
// for entries not scoped to a single payment.
type AuditEntry struct {
	ID            uuid.UUID      `json:"id"`
	ActorID       uuid.UUID      `json:"actor_id"`
	Action        string         `json:"action"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
