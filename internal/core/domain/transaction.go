package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment.
//
// pending -> verified -> completed
// pending -> rejected
//
// Transitions only move forward. A rejected payment is terminal, and a
// payment can only reach completed through verified.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus maps a wire/query string onto a known Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusVerified, StatusRejected, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Transaction represents an international SWIFT payment instruction.
// Amount, currency and payee fields are fixed at creation; only status and
// employee notes change afterwards.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PayeeAccount  string          `json:"payee_account"`
	SwiftCode     string          `json:"swift_code"`
	PayeeName     string          `json:"payee_name"`
	Status        Status          `json:"status"`
	EmployeeNotes string          `json:"employee_notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewTransactionInput is what a customer submits to create a payment.
// Raw strings on purpose: validation and normalization happen in
// ValidateNewTransaction before anything touches the database.
type NewTransactionInput struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PayeeAccount string `json:"payee_account"`
	SwiftCode    string `json:"swift_code"`
	PayeeName    string `json:"payee_name"`
}
