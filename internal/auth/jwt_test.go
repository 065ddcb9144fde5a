package auth

import (
	"testing"
	"time"
)

func testIssuer(t *testing.T, now time.Time, ttl time.Duration) *TokenIssuer {
	t.Helper()
	keys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	return &TokenIssuer{
		Keys: keys,
		TTL:  ttl,
		Now:  func() time.Time { return now },
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ti := testIssuer(t, now, time.Hour)

	tok, err := ti.Issue("writer@example.com", []string{"ROLE_USER", "ROLE_ADMIN"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := ti.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.Email != "writer@example.com" {
		t.Fatalf("email: got %q", id.Email)
	}
	if len(id.Roles) != 2 || id.Roles[0] != "ROLE_USER" || id.Roles[1] != "ROLE_ADMIN" {
		t.Fatalf("roles: got %v", id.Roles)
	}
}

func TestTokenIssuerExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ti := testIssuer(t, issuedAt, 900*time.Second)

	tok, err := ti.Issue("writer@example.com", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// exp == now is already expired; one second earlier is still valid.
	ti.Now = func() time.Time { return issuedAt.Add(900 * time.Second) }
	if _, err := ti.Validate(tok); err != ErrInvalidToken {
		t.Fatalf("at exp: got %v, want ErrInvalidToken", err)
	}

	ti.Now = func() time.Time { return issuedAt.Add(899 * time.Second) }
	if _, err := ti.Validate(tok); err != nil {
		t.Fatalf("one second before exp: %v", err)
	}
}

func TestTokenIssuerEmptySubject(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ti := testIssuer(t, now, time.Hour)

	tok, err := ti.Issue("", []string{"ROLE_USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Validate(tok); err != ErrInvalidToken {
		t.Fatalf("empty subject: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuerWrongKey(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ti := testIssuer(t, now, time.Hour)
	other := testIssuer(t, now, time.Hour)

	tok, err := other.Issue("writer@example.com", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Validate(tok); err != ErrInvalidToken {
		t.Fatalf("foreign signature: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuerMalformed(t *testing.T) {
	ti := testIssuer(t, time.Now(), time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := ti.Validate(tok); err != ErrInvalidToken {
			t.Fatalf("token %q: got %v, want ErrInvalidToken", tok, err)
		}
	}
}
