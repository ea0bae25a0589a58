// Package workflow holds the payment state machine: a customer creates a
// pending payment, an employee pre-validates it against the external
// service and verifies or rejects it, and a verified payment is finally
// submitted to the network.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/prevalidation"
)

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// ListFilter narrows a customer's transaction listing.
type ListFilter struct {
	Status *domain.Status
}

// TransactionStore is the persistence contract the workflow drives.
// UpdateStatus is a compare-and-swap: it must fail with ConflictError when
// the stored status no longer equals expected, never silently overwrite.
// An empty notes argument leaves the stored notes untouched.
type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, filter ListFilter, page Page) ([]domain.Transaction, int, error)
	ListByStatus(ctx context.Context, status domain.Status, page Page) ([]domain.Transaction, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string) (*domain.Transaction, error)
}

// AuditRecorder appends an immutable audit entry. Failures are the
// recorder's (and our logs') problem, never the caller's: the transition
// that triggered the entry has already committed.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// Prevalidator is the slice of the external validation client the workflow
// needs.
type Prevalidator interface {
	VerifyBeneficiaryAccount(ctx context.Context, req prevalidation.AccountVerificationRequest, signingIdentity string) (prevalidation.MatchResult, error)
	ValidateDataProvider(ctx context.Context, req prevalidation.DataProviderRequest, signingIdentity string) (prevalidation.MatchResult, error)
}

// VerifyResult reports the outcome of a pre-validation run. FailedChecks is
// empty when the payment was verified.
type VerifyResult struct {
	Transaction  *domain.Transaction
	Verified     bool
	FailedChecks []string
}

// SubmissionResult carries the network submission reference.
type SubmissionResult struct {
	Transaction *domain.Transaction
	Reference   string
}

// Workflow orchestrates transaction state transitions.
type Workflow struct {
	store   TransactionStore
	audit   AuditRecorder
	preval  Prevalidator
	ceiling decimal.Decimal

	// signingIdentity is the subject DN / BIC this institution signs
	// pre-validation requests with. Required for PreValidateAndVerify.
	signingIdentity string

	now func() time.Time
}

func New(store TransactionStore, audit AuditRecorder, preval Prevalidator, ceiling decimal.Decimal, signingIdentity string) *Workflow {
	return &Workflow{
		store:           store,
		audit:           audit,
		preval:          preval,
		ceiling:         ceiling,
		signingIdentity: signingIdentity,
		now:             time.Now,
	}
}

// Create validates a customer's payment request and stores it as pending.
// All field failures are reported together in one ValidationError.
func (w *Workflow) Create(ctx context.Context, actor domain.Actor, in domain.NewTransactionInput) (*domain.Transaction, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}

	validated, err := domain.ValidateNewTransaction(in, w.ceiling)
	if err != nil {
		return nil, err
	}

	now := w.now()
	tx := &domain.Transaction{
		ID:           uuid.New(),
		CustomerID:   actor.ID,
		Amount:       validated.Amount,
		Currency:     validated.Currency,
		PayeeAccount: validated.PayeeAccount,
		SwiftCode:    validated.SwiftCode,
		PayeeName:    validated.PayeeName,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := w.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	w.record(ctx, actor, domain.AuditTransactionCreated, &tx.ID, map[string]any{
		"amount":   tx.Amount.StringFixed(2),
		"currency": tx.Currency,
		"payee":    tx.PayeeName,
	})
	return tx, nil
}

// Get returns a single transaction. Customers only see their own; an
// unknown id and someone else's payment look identical to the caller.
func (w *Workflow) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && tx.CustomerID != actor.ID {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id.String()}
	}
	return tx, nil
}

// ListMine lists a customer's own transactions.
func (w *Workflow) ListMine(ctx context.Context, actor domain.Actor, filter ListFilter, page Page) ([]domain.Transaction, int, error) {
	return w.store.ListByOwner(ctx, actor.ID, filter, page)
}

// ListByStatus is the employee review queue.
func (w *Workflow) ListByStatus(ctx context.Context, actor domain.Actor, status domain.Status, page Page) ([]domain.Transaction, int, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, 0, domain.ErrForbidden
	}
	return w.store.ListByStatus(ctx, status, page)
}

// PreValidateAndVerify runs both external checks against a pending payment.
// Both checks passing moves it to verified; a negative match on either moves
// it to rejected with the failing checks recorded in the notes. A transport
// or auth failure changes nothing and surfaces an ExternalServiceError.
func (w *Workflow) PreValidateAndVerify(ctx context.Context, actor domain.Actor, id uuid.UUID) (*VerifyResult, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, domain.ErrForbidden
	}
	if w.signingIdentity == "" {
		return nil, &domain.ConfigurationError{Setting: "signing identity"}
	}

	tx, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusPending {
		return nil, &domain.InvalidStateError{Current: tx.Status, Required: domain.StatusPending}
	}

	account, err := w.preval.VerifyBeneficiaryAccount(ctx, prevalidation.AccountVerificationRequest{
		CreditorAccount: tx.PayeeAccount,
		CreditorName:    tx.PayeeName,
		CreditorAgent:   prevalidation.Agent{BICFI: tx.SwiftCode},
	}, w.signingIdentity)
	if err != nil {
		return nil, err
	}

	provider, err := w.preval.ValidateDataProvider(ctx, prevalidation.DataProviderRequest{
		CreditorAgent: prevalidation.Agent{BICFI: tx.SwiftCode},
	}, w.signingIdentity)
	if err != nil {
		return nil, err
	}

	var failed []string
	if !account.Match {
		failed = append(failed, failureNote("beneficiary account verification", account.Reason))
	}
	if !provider.Match {
		failed = append(failed, failureNote("data provider validation", provider.Reason))
	}

	// Status may have moved while we were on the wire; the CAS below is the
	// guard that makes two employees racing on the same payment safe.
	if len(failed) == 0 {
		updated, err := w.store.UpdateStatus(ctx, id, domain.StatusPending, domain.StatusVerified, "")
		if err != nil {
			return nil, err
		}
		w.record(ctx, actor, domain.AuditTransactionVerified, &id, map[string]any{
			"swift_code": tx.SwiftCode,
		})
		return &VerifyResult{Transaction: updated, Verified: true}, nil
	}

	notes := strings.Join(failed, "; ")
	updated, err := w.store.UpdateStatus(ctx, id, domain.StatusPending, domain.StatusRejected, notes)
	if err != nil {
		return nil, err
	}
	w.record(ctx, actor, domain.AuditTransactionRejected, &id, map[string]any{
		"failed_checks": failed,
	})
	return &VerifyResult{Transaction: updated, FailedChecks: failed}, nil
}

// Reject declines a pending payment without calling the external service.
func (w *Workflow) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (*domain.Transaction, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, domain.ErrForbidden
	}

	tx, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusPending {
		return nil, &domain.InvalidStateError{Current: tx.Status, Required: domain.StatusPending}
	}

	updated, err := w.store.UpdateStatus(ctx, id, domain.StatusPending, domain.StatusRejected, notes)
	if err != nil {
		return nil, err
	}

	w.record(ctx, actor, domain.AuditTransactionRejected, &id, map[string]any{
		"notes": notes,
	})
	return updated, nil
}

// SubmitToNetwork moves a verified payment to completed and issues the
// submission reference.
func (w *Workflow) SubmitToNetwork(ctx context.Context, actor domain.Actor, id uuid.UUID) (*SubmissionResult, error) {
	if actor.Role != domain.RoleEmployee {
		return nil, domain.ErrForbidden
	}

	tx, err := w.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusVerified {
		return nil, &domain.InvalidStateError{Current: tx.Status, Required: domain.StatusVerified}
	}

	reference := SubmissionReference(id, w.now())

	updated, err := w.store.UpdateStatus(ctx, id, domain.StatusVerified, domain.StatusCompleted, "")
	if err != nil {
		return nil, err
	}

	w.record(ctx, actor, domain.AuditSwiftSubmission, &id, map[string]any{
		"reference":     reference,
		"amount":        tx.Amount.StringFixed(2),
		"currency":      tx.Currency,
		"payee_account": tx.PayeeAccount,
		"swift_code":    tx.SwiftCode,
	})
	return &SubmissionResult{Transaction: updated, Reference: reference}, nil
}

// SubmissionReference derives the network reference from the transaction id
// and submission instant.
func SubmissionReference(id uuid.UUID, at time.Time) string {
	compact := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("SW-%s-%d", compact, at.Unix())
}

// record appends an audit entry and swallows any failure after logging it;
// the transition it describes has already committed.
func (w *Workflow) record(ctx context.Context, actor domain.Actor, action string, txID *uuid.UUID, detail map[string]any) {
	entry := domain.AuditEntry{
		ID:            uuid.New(),
		ActorID:       actor.ID,
		Action:        action,
		TransactionID: txID,
		Detail:        detail,
		CreatedAt:     w.now(),
	}
	if err := w.audit.Record(ctx, entry); err != nil {
		slog.Error("Failed to record audit entry", "error", err, "action", action)
	}
}

func failureNote(check, reason string) string {
	if reason == "" {
		return check + " failed"
	}
	return check + " failed: " + reason
}
