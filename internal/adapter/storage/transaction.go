package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/workflow"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionRepository is the pgx-backed workflow.TransactionStore.
// Amounts live in a NUMERIC column and cross the wire as text so no float
// ever touches them.
type TransactionRepository struct {
	Db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{Db: db}
}

const transactionColumns = `id, customer_id, amount::text, currency, payee_account, swift_code, payee_name, status, employee_notes, created_at, updated_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions
			(id, customer_id, amount, currency, payee_account, swift_code, payee_name, status, employee_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', $9, $9)
	`
	_, err := r.Db.Exec(ctx, query,
		tx.ID, tx.CustomerID, tx.Amount.StringFixed(2), tx.Currency,
		tx.PayeeAccount, tx.SwiftCode, tx.PayeeName, string(tx.Status), tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.Db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) ListByOwner(ctx context.Context, owner uuid.UUID, filter workflow.ListFilter, page workflow.Page) ([]domain.Transaction, int, error) {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}

	query := `
		SELECT ` + transactionColumns + `, COUNT(*) OVER() AS total
		FROM transactions
		WHERE customer_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit, offset := clampPage(page)
	rows, err := r.Db.Query(ctx, query, owner, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectTransactions(rows)
}

func (r *TransactionRepository) ListByStatus(ctx context.Context, status domain.Status, page workflow.Page) ([]domain.Transaction, int, error) {
	query := `
		SELECT ` + transactionColumns + `, COUNT(*) OVER() AS total
		FROM transactions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	limit, offset := clampPage(page)
	rows, err := r.Db.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectTransactions(rows)
}

// UpdateStatus is a compare-and-swap: the row only changes while it still
// holds the expected status. Losing the race yields ConflictError, never a
// silent overwrite. Empty notes leave the stored notes alone.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $3,
		    employee_notes = CASE WHEN $4 = '' THEN employee_notes ELSE $4 END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.Db.QueryRow(ctx, query, id, string(expected), string(next), notes))
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing row or lost race: re-read to tell which.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, &domain.ConflictError{Expected: expected}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		amount string
		status string
	)
	err := row.Scan(
		&tx.ID, &tx.CustomerID, &amount, &tx.Currency, &tx.PayeeAccount,
		&tx.SwiftCode, &tx.PayeeName, &status, &tx.EmployeeNotes,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
	}
	tx.Status = domain.Status(status)
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, int, error) {
	defer rows.Close()

	var (
		out   []domain.Transaction
		total int
	)
	for rows.Next() {
		var (
			tx     domain.Transaction
			amount string
			status string
		)
		err := rows.Scan(
			&tx.ID, &tx.CustomerID, &amount, &tx.Currency, &tx.PayeeAccount,
			&tx.SwiftCode, &tx.PayeeName, &status, &tx.EmployeeNotes,
			&tx.CreatedAt, &tx.UpdatedAt, &total,
		)
		if err != nil {
			return nil, 0, err
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, 0, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
		}
		tx.Status = domain.Status(status)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func clampPage(page workflow.Page) (limit, offset int) {
	limit = page.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = page.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
