package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the fixed iss claim stamped into every session token.
const Issuer = "noteserver"

// ErrInvalidToken is the single failure result for session token validation.
// Callers never learn whether the token was malformed, forged, expired or
// missing its subject.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the claim content a valid session token proves.
type Identity struct {
	Email string
	Roles []string
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Roles string `json:"roles"`
}

// TokenIssuer signs and verifies stateless RS256 session tokens. Both
// operations are pure functions over the key pair and claims; no state is
// held per token, so a TokenIssuer is safe for concurrent use.
type TokenIssuer struct {
	Keys KeyPair
	TTL  time.Duration
	Now  func() time.Time
}

func (ti *TokenIssuer) now() time.Time {
	if ti.Now != nil {
		return ti.Now()
	}
	return time.Now()
}

func (ti *TokenIssuer) Issue(email string, roles []string) (string, error) {
	now := ti.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.TTL)),
		},
		Roles: strings.Join(roles, " "),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ti.Keys.Private)
}

// Validate verifies the signature and decodes the claims. Beyond the
// signature it requires an exp strictly after now (a token expiring at
// exactly now is already expired) and a non-empty sub.
func (ti *TokenIssuer) Validate(tokenString string) (Identity, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return ti.Keys.Public, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	if claims.Issuer != Issuer {
		return Identity{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(ti.now()) {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{Email: claims.Subject, Roles: strings.Fields(claims.Roles)}, nil
}
