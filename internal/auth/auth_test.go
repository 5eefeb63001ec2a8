package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func TestIssueAndParse(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}

	token, err := tokens.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	id, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user 42, got %d", id)
	}
}

func TestParseRejects(t *testing.T) {
	tokens, _ := NewTokens(testSecret, time.Hour)
	other, _ := NewTokens("another-secret-0123456789", time.Hour)

	expired, _ := NewTokens(testSecret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue(1, "alice")

	foreign, _ := other.Issue(1, "alice")

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"garbage":        "not.a.token",
		"wrong secret":   foreign,
		"expired":        expiredToken,
		"bad subject":    badSubject,
		"missing expiry": noExpiry,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tokens.Parse(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("short", time.Hour); err == nil {
		t.Fatalf("expected error for short secret")
	}
	if _, err := NewTokens(testSecret, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		err    error
	}{
		{header: "", err: ErrMissingToken},
		{header: "Basic abc", err: ErrMalformedHeader},
		{header: "Bearer", err: ErrMalformedHeader},
		{header: "Bearer   ", err: ErrMalformedHeader},
		{header: "Bearer abc.def", token: "abc.def"},
		{header: "bearer abc", token: "abc"},
	}
	for _, tt := range tests {
		token, err := BearerToken(tt.header)
		if !errors.Is(err, tt.err) {
			t.Fatalf("BearerToken(%q) error = %v, want %v", tt.header, err, tt.err)
		}
		if token != tt.token {
			t.Fatalf("BearerToken(%q) = %q, want %q", tt.header, token, tt.token)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Fatalf("hash contains the plaintext")
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("CheckPassword failed: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHashPasswordByteLimit(t *testing.T) {
	// 24 runes, 72 bytes
	if _, err := HashPassword(strings.Repeat("€", 24)); err != nil {
		t.Fatalf("72 bytes should hash: %v", err)
	}
	if _, err := HashPassword(strings.Repeat("€", 30)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
