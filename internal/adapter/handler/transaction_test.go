package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/swiftportal/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/prevalidation"
	"github.com/ibrahimkeyboad/swiftportal/internal/core/workflow"
)

const testSecret = "handler-test-secret"

type fakeStore struct {
	mu  sync.Mutex
	txs map[uuid.UUID]domain.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: map[uuid.UUID]domain.Transaction{}}
}

func (f *fakeStore) Create(ctx context.Context, tx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.ID] = *tx
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "transaction", ID: id.String()}
	}
	return &tx, nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, owner uuid.UUID, filter workflow.ListFilter, page workflow.Page) ([]domain.Transaction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.CustomerID == owner {
			out = append(out, tx)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, status domain.Status, page workflow.Page) ([]domain.Transaction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, notes string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
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
	f.txs[id] = tx
	return &tx, nil
}

type fakeRecorder struct{}

func (fakeRecorder) Record(ctx context.Context, entry domain.AuditEntry) error { return nil }

type fakePrevalidator struct {
	accountErr error
	match      bool
}

func (f *fakePrevalidator) VerifyBeneficiaryAccount(ctx context.Context, req prevalidation.AccountVerificationRequest, identity string) (prevalidation.MatchResult, error) {
	if f.accountErr != nil {
		return prevalidation.MatchResult{}, f.accountErr
	}
	return prevalidation.MatchResult{Match: f.match}, nil
}

func (f *fakePrevalidator) ValidateDataProvider(ctx context.Context, req prevalidation.DataProviderRequest, identity string) (prevalidation.MatchResult, error) {
	return prevalidation.MatchResult{Match: f.match}, nil
}

func newTestApp(store *fakeStore, preval *fakePrevalidator) *fiber.App {
	flow := workflow.New(store, fakeRecorder{}, preval, decimal.RequireFromString("100000.00"), "SBZAZAJJ")
	h := &TransactionHandler{Flow: flow}

	app := fiber.New()
	api := app.Group("/v1", middleware.Protected(testSecret))
	api.Post("/transactions", h.Create)
	api.Get("/transactions", h.List)
	api.Get("/transactions/:id", h.Get)
	requireEmployee := middleware.RequireRole(domain.RoleEmployee)
	api.Post("/transactions/:id/verify", requireEmployee, h.Verify)
	api.Post("/transactions/:id/reject", requireEmployee, h.Reject)
	api.Post("/transactions/:id/submit", requireEmployee, h.Submit)
	return app
}

func sessionToken(t *testing.T, id uuid.UUID, role domain.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing session token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, path, token, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func seedTransaction(store *fakeStore, status domain.Status) domain.Transaction {
	tx := domain.Transaction{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Amount:       decimal.RequireFromString("1000.50"),
		Currency:     "USD",
		PayeeAccount: "PAYEE123",
		SwiftCode:    "SBZAZAJJ",
		PayeeName:    "Jane Smith",
		Status:       status,
	}
	store.txs[tx.ID] = tx
	return tx
}

func TestCreateTransactionEndpoint(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, &fakePrevalidator{match: true})
	token := sessionToken(t, uuid.New(), domain.RoleCustomer)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions", token,
		`{"amount":"1000.50","currency":"usd","payee_account":"payee123","swift_code":"sbzazajj","payee_name":"Jane Smith"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Transaction.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", body.Transaction.Status)
	}
	if body.Transaction.Currency != "USD" {
		t.Errorf("currency = %q, want normalized USD", body.Transaction.Currency)
	}
}

func TestCreateTransactionValidationFailure(t *testing.T) {
	app := newTestApp(newFakeStore(), &fakePrevalidator{})
	token := sessionToken(t, uuid.New(), domain.RoleCustomer)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions", token,
		`{"amount":"-1","currency":"x","payee_account":"y","swift_code":"z","payee_name":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &body)
	if len(body.Fields) != 5 {
		t.Errorf("fields = %v, want all 5 reported", body.Fields)
	}
}

func TestEndpointsRequireSession(t *testing.T) {
	app := newTestApp(newFakeStore(), &fakePrevalidator{})

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions", "", `{}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestVerifyRequiresEmployeeRole(t *testing.T) {
	store := newFakeStore()
	tx := seedTransaction(store, domain.StatusPending)
	app := newTestApp(store, &fakePrevalidator{match: true})
	token := sessionToken(t, uuid.New(), domain.RoleCustomer)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/verify", token, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestVerifyUnknownTransaction(t *testing.T) {
	app := newTestApp(newFakeStore(), &fakePrevalidator{match: true})
	token := sessionToken(t, uuid.New(), domain.RoleEmployee)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions/"+uuid.NewString()+"/verify", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitWrongStateMapsToConflict(t *testing.T) {
	store := newFakeStore()
	tx := seedTransaction(store, domain.StatusPending)
	app := newTestApp(store, &fakePrevalidator{match: true})
	token := sessionToken(t, uuid.New(), domain.RoleEmployee)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/submit", token, "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestVerifyExternalFailureMapsToBadGateway(t *testing.T) {
	store := newFakeStore()
	tx := seedTransaction(store, domain.StatusPending)
	preval := &fakePrevalidator{accountErr: &domain.ExternalServiceError{Operation: "account verification", StatusCode: 503}}
	app := newTestApp(store, preval)
	token := sessionToken(t, uuid.New(), domain.RoleEmployee)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/verify", token, "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if store.txs[tx.ID].Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING untouched", store.txs[tx.ID].Status)
	}
}

func TestRejectEndpointStoresNotes(t *testing.T) {
	store := newFakeStore()
	tx := seedTransaction(store, domain.StatusPending)
	app := newTestApp(store, &fakePrevalidator{})
	token := sessionToken(t, uuid.New(), domain.RoleEmployee)

	resp := doRequest(t, app, http.MethodPost, "/v1/transactions/"+tx.ID.String()+"/reject", token, `{"notes":"documents missing"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if store.txs[tx.ID].Status != domain.StatusRejected {
		t.Errorf("status = %s, want REJECTED", store.txs[tx.ID].Status)
	}
	if store.txs[tx.ID].EmployeeNotes != "documents missing" {
		t.Errorf("notes = %q, want stored", store.txs[tx.ID].EmployeeNotes)
	}
}

func TestCustomerCannotFetchForeignTransaction(t *testing.T) {
	store := newFakeStore()
	tx := seedTransaction(store, domain.StatusPending)
	app := newTestApp(store, &fakePrevalidator{})
	token := sessionToken(t, uuid.New(), domain.RoleCustomer)

	resp := doRequest(t, app, http.MethodGet, "/v1/transactions/"+tx.ID.String(), token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for foreign transaction", resp.StatusCode)
	}
}
