package prevalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// A token within this window of its expiry is treated as already expired,
// so we never hand out a token that dies mid-request.
const expirySkew = 60 * time.Second

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

type cachedToken struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func (t *cachedToken) validAt(now time.Time) bool {
	return t != nil && now.Before(t.expiresAt.Add(-expirySkew))
}

// TokenCache holds the single live access/refresh token pair for the
// pre-validation service and refreshes it before it expires.
//
// The mutex is held across the whole acquisition, including the HTTP call.
// Concurrent callers therefore queue behind one in-flight request and pick
// up its result instead of hammering the token endpoint.
type TokenCache struct {
	tokenURL       string
	revokeURL      string
	consumerKey    string
	consumerSecret string
	signer         *Signer
	httpClient     *http.Client
	now            func() time.Time

	mu  sync.Mutex
	cur *cachedToken
}

func NewTokenCache(tokenURL, revokeURL, consumerKey, consumerSecret string, signer *Signer, httpClient *http.Client) *TokenCache {
	return &TokenCache{
		tokenURL:       tokenURL,
		revokeURL:      revokeURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		signer:         signer,
		httpClient:     httpClient,
		now:            time.Now,
	}
}

// GetValidToken returns a live access token, acquiring or refreshing one if
// needed. signingIdentity becomes the subject of the JWT-bearer assertion
// when a brand-new token has to be requested.
func (c *TokenCache) GetValidToken(ctx context.Context, signingIdentity string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur.validAt(c.now()) {
		return c.cur.accessToken, nil
	}

	// Prefer the refresh grant when we hold a refresh token, fall back to a
	// fresh JWT-bearer grant if the refresh is refused.
	if c.cur != nil && c.cur.refreshToken != "" {
		tok, err := c.requestToken(ctx, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {c.cur.refreshToken},
		})
		if err == nil {
			c.cur = tok
			return tok.accessToken, nil
		}
		slog.Warn("Token refresh failed, requesting a new token", "error", err)
	}

	assertion, err := c.signer.Assertion(c.tokenURL, signingIdentity)
	if err != nil {
		return "", err
	}

	tok, err := c.requestToken(ctx, url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	})
	if err != nil {
		return "", err
	}
	c.cur = tok
	return tok.accessToken, nil
}

// Revoke tells the service to invalidate the current token and clears the
// cache. The remote call is best effort: the local cache is cleared even
// when revocation fails, so the dead pair is never reused.
func (c *TokenCache) Revoke(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		return nil
	}

	token := c.cur.accessToken
	c.cur = nil

	if c.revokeURL == "" {
		return nil
	}

	body := url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Token revocation call failed, cache cleared anyway", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("Token revocation rejected, cache cleared anyway", "status", resp.StatusCode)
	}
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *TokenCache) requestToken(ctx context.Context, form url.Values) (*cachedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &domain.ExternalServiceError{Operation: "token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExternalServiceError{Operation: "token request", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExternalServiceError{
			Operation:  "token request",
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	var body tokenResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &domain.ExternalServiceError{Operation: "token request", Err: fmt.Errorf("malformed token response: %w", err)}
	}
	if body.AccessToken == "" {
		return nil, &domain.ExternalServiceError{Operation: "token request", Err: fmt.Errorf("token response carried no access token")}
	}

	return &cachedToken{
		accessToken:  body.AccessToken,
		refreshToken: body.RefreshToken,
		expiresAt:    c.now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
