package security

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/swiftportal/internal/core/domain"
)

// ParseSessionToken validates a session JWT issued by the auth service and
// extracts the actor. We only check signature and expiry here; issuing
// tokens is not this service's job.
func ParseSessionToken(tokenString, secret string) (domain.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, fmt.Errorf("invalid session token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Actor{}, fmt.Errorf("session token missing subject: %w", err)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("session token subject is not a uuid: %w", err)
	}

	role, _ := claims["role"].(string)
	switch domain.Role(role) {
	case domain.RoleCustomer, domain.RoleEmployee:
	default:
		return domain.Actor{}, fmt.Errorf("session token carries unknown role %q", role)
	}

	return domain.Actor{ID: id, Role: domain.Role(role)}, nil
}
