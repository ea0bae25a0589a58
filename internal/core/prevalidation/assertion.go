package prevalidation

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// Assertions are short-lived on purpose: the token endpoint rejects anything
// older than a few minutes anyway.
const assertionLifetime = 5 * time.Minute

// Signer builds the signed JWT-bearer assertion exchanged for an access
// token. ConsumerKey is the OAuth client identifier the service knows us by,
// certChain goes into the x5c header so the service can verify the signature.
type Signer struct {
	consumerKey string
	key         *rsa.PrivateKey
	certChain   []string
	now         func() time.Time
}

// NewSigner loads the RSA signing key (and optional certificate chain) from
// PEM files. A missing or unreadable key is a configuration error: there is
// no way to authenticate to the pre-validation service without it.
func NewSigner(consumerKey, keyPath, certPath string) (*Signer, error) {
	key, err := loadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}

	var chain []string
	if certPath != "" {
		chain, err = loadCertChain(certPath)
		if err != nil {
			return nil, err
		}
	}

	return &Signer{
		consumerKey: consumerKey,
		key:         key,
		certChain:   chain,
		now:         time.Now,
	}, nil
}

// Assertion signs a fresh JWT-bearer assertion identifying the caller.
// audience is the token endpoint URL, subject the caller's signing identity
// (subject DN / BIC). Each assertion carries a unique jti.
func (s *Signer) Assertion(audience, subject string) (string, error) {
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": s.consumerKey,
		"aud": audience,
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	})
	if len(s.certChain) > 0 {
		token.Header["x5c"] = s.certChain
	}

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Setting: "signing key " + path}
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, &domain.ConfigurationError{Setting: "signing key " + path}
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &domain.ConfigurationError{Setting: "signing key " + path}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &domain.ConfigurationError{Setting: "signing key " + path}
	}
	return key, nil
}

// loadCertChain reads every certificate in the PEM file and returns the
// DER bytes base64-encoded, leaf first, as required by the x5c header.
func loadCertChain(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Setting: "signing certificate " + path}
	}

	var chain []string
	for {
		var block *pem.Block
		block, raw = pem.Decode(raw)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return nil, &domain.ConfigurationError{Setting: "signing certificate " + path}
		}
		chain = append(chain, base64.StdEncoding.EncodeToString(block.Bytes))
	}
	if len(chain) == 0 {
		return nil, &domain.ConfigurationError{Setting: "signing certificate " + path}
	}
	return chain, nil
}
