// Package admintoken issues and verifies the bearer tokens guarding
// administrative endpoints.
package admintoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ScopeAdmin is the scope administrative endpoints require.
const ScopeAdmin = "admin"

var (
	// ErrInvalidToken means the token is malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongScope means the token is genuine but does not grant the
	// required scope.
	ErrWrongScope = errors.New("token is out of scope")
)

// Claim is the claim set of an admin token.
type Claim struct {
	jwt.RegisteredClaims

	// private claims
	Scope string `json:"mlops/scope"`
}

// Issue signs an HS256 token granting ScopeAdmin for ttl.
func Issue(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claim{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti
			ID: uuid.NewString(),

			// sub
			Subject: subject,

			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: ScopeAdmin,
	})
	return tok.SignedString(secret)
}

// Verify parses token and checks that it grants scope.
//
// Returns ErrInvalidToken when the token cannot be trusted and
// ErrWrongScope when it is genuine but grants another scope.
func Verify(secret []byte, token string, scope string) (*Claim, error) {
	claim := &Claim{}
	if _, err := jwt.ParseWithClaims(
		token, claim,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if claim.Scope != scope {
		return nil, fmt.Errorf("%w: %q", ErrWrongScope, claim.Scope)
	}
	return claim, nil
}
