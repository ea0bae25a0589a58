package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/prevalidation"
)

// MockStore is an in-memory TransactionStore with a real compare-and-swap,
// so races between concurrent transitions behave like the database would.
type MockStore struct {
	mu  sync.Mutex
	txs map[uuid.UUID]domain.Transaction

	CreateErr error
	GetErr    error
	UpdateErr error

	UpdateCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{txs: map[uuid.UUID]domain.Transaction{}}
}

func (m *MockStore) Put(tx domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID] = tx
}

func (m *MockStore) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID] = *tx
	return nil
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id.String()}
	}
	return &tx, nil
}

func (m *MockStore) ListByOwner(ctx context.Context, owner uuid.UUID, filter ListFilter, page Page) ([]domain.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range m.txs {
		if tx.CustomerID != owner {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		out = append(out, tx)
	}
	return out, len(out), nil
}

func (m *MockStore) ListByStatus(ctx context.Context, status domain.Status, page Page) ([]domain.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range m.txs {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out, len(out), nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	tx, ok := m.txs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id.String()}
	}
	if tx.Status != expected {
		return nil, &domain.ConflictError{Expected: expected}
	}
	tx.Status = next
	if notes != "" {
		tx.EmployeeNotes = notes
	}
	m.txs[id] = tx
	return &tx, nil
}

// MockRecorder collects audit entries.
type MockRecorder struct {
	mu      sync.Mutex
	Entries []domain.AuditEntry
	Err     error
}

func (m *MockRecorder) Record(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockRecorder) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.Action
	}
	return out
}

// MockPrevalidator answers the two external checks from func fields.
type MockPrevalidator struct {
	VerifyAccountFunc    func(ctx context.Context, req prevalidation.AccountVerificationRequest, identity string) (prevalidation.MatchResult, error)
	ValidateProviderFunc func(ctx context.Context, req prevalidation.DataProviderRequest, identity string) (prevalidation.MatchResult, error)

	AccountCalls  int
	ProviderCalls int
	LastIdentity  string
}

func (m *MockPrevalidator) VerifyBeneficiaryAccount(ctx context.Context, req prevalidation.AccountVerificationRequest, identity string) (prevalidation.MatchResult, error) {
	m.AccountCalls++
	m.LastIdentity = identity
	if m.VerifyAccountFunc != nil {
		return m.VerifyAccountFunc(ctx, req, identity)
	}
	return prevalidation.MatchResult{Match: true}, nil
}

func (m *MockPrevalidator) ValidateDataProvider(ctx context.Context, req prevalidation.DataProviderRequest, identity string) (prevalidation.MatchResult, error) {
	m.ProviderCalls++
	m.LastIdentity = identity
	if m.ValidateProviderFunc != nil {
		return m.ValidateProviderFunc(ctx, req, identity)
	}
	return prevalidation.MatchResult{Match: true}, nil
}
