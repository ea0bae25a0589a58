package prevalidation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

const (
	accountVerificationPath = "/accounts/verification"
	dataProviderPath        = "/data-providers/validation"
)

// Match indicator values the service uses in response bodies. Anything other
// than a pass is treated as a negative match; HTTP status alone says nothing.
const (
	indicatorPass         = "PASS"
	indicatorFail         = "FAIL"
	indicatorInconclusive = "INCN"
)

// Agent identifies a financial institution by its BIC.
type Agent struct {
	BICFI string `json:"bicfi"`
}

// AccountVerificationRequest asks the service whether the payee account
// exists at the given institution under the given name.
type AccountVerificationRequest struct {
	CreditorAccount string `json:"creditor_account"`
	CreditorName    string `json:"creditor_name"`
	CreditorAgent   Agent  `json:"creditor_agent"`
}

// DataProviderRequest asks whether the payee's routing agent is a
// recognized data provider on the network.
type DataProviderRequest struct {
	CreditorAgent Agent `json:"creditor_agent"`
}

// MatchResult is the domain-level outcome of a pre-validation check.
type MatchResult struct {
	Match  bool
	Reason string
}

type accountVerificationResponse struct {
	AccountValidation string `json:"account_validation"`
	Reason            string `json:"reason,omitempty"`
}

type dataProviderResponse struct {
	DataProviderCheck string `json:"data_provider_check"`
	Reason            string `json:"reason,omitempty"`
}

// Client talks to the external pre-validation REST API. Every call fetches a
// live token from the TokenCache and carries a fresh correlation id, so a
// retried call is traceable as a distinct request on the far side.
type Client struct {
	baseURL    string
	tokens     *TokenCache
	httpClient *http.Client
}

func NewClient(baseURL string, tokens *TokenCache, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// VerifyBeneficiaryAccount runs the account/payee-name check.
func (c *Client) VerifyBeneficiaryAccount(ctx context.Context, req AccountVerificationRequest, signingIdentity string) (MatchResult, error) {
	var body accountVerificationResponse
	if err := c.post(ctx, "account verification", accountVerificationPath, req, signingIdentity, &body); err != nil {
		return MatchResult{}, err
	}
	return MatchResult{
		Match:  body.AccountValidation == indicatorPass,
		Reason: body.Reason,
	}, nil
}

// ValidateDataProvider checks that the payee's routing agent is a
// recognized data provider.
func (c *Client) ValidateDataProvider(ctx context.Context, req DataProviderRequest, signingIdentity string) (MatchResult, error) {
	var body dataProviderResponse
	if err := c.post(ctx, "data provider validation", dataProviderPath, req, signingIdentity, &body); err != nil {
		return MatchResult{}, err
	}
	return MatchResult{
		Match:  body.DataProviderCheck == indicatorPass,
		Reason: body.Reason,
	}, nil
}

func (c *Client) post(ctx context.Context, operation, path string, payload any, signingIdentity string, out any) error {
	token, err := c.tokens.GetValidToken(ctx, signingIdentity)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &domain.ExternalServiceError{Operation: operation, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return &domain.ExternalServiceError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ExternalServiceError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ExternalServiceError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.ExternalServiceError{Operation: operation, Err: fmt.Errorf("malformed response body: %w", err)}
	}
	return nil
}
