package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short", 0); err == nil {
		t.Error("secret under 16 characters accepted")
	}

	ts, err := NewTokenService("exactly-16-chars", 0)
	if err != nil {
		t.Fatalf("16-character secret rejected: %v", err)
	}
	if ts.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", ts.TTL(), DefaultTokenTTL)
	}

	ts, _ = NewTokenService(testSecret, 90*time.Minute)
	if ts.TTL() != 90*time.Minute {
		t.Errorf("TTL() = %v, want 90m", ts.TTL())
	}
}

func TestGenerateValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("c9h3k2u0000000000000")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not header.payload.signature", token)
	}

	id, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if id != "c9h3k2u0000000000000" {
		t.Errorf("Validate() = %q", id)
	}
}

func TestGenerate_ClaimsCarryIssuerAndExpiry(t *testing.T) {
	ts, _ := NewTokenService(testSecret, time.Hour)
	token, _ := ts.Generate("acct")

	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if c.Issuer != "blognode" || c.Subject != "acct" {
		t.Errorf("claims = %+v", c)
	}
	if ttl := c.ExpiresAt.Sub(c.IssuedAt.Time); ttl != time.Hour {
		t.Errorf("exp - iat = %v, want 1h", ttl)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate("acct")
	expired, _ := ts.GenerateWithDuration("acct", -time.Minute)
	other, _ := NewTokenService("a-completely-different-secret", 0)
	foreign, _ := other.Generate("acct")

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "blognode",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acct",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "acct",
		Issuer:  "blognode",
	}).SignedString([]byte(testSecret))

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "acct",
		Issuer:    "blognode",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"tampered":     good[:len(good)-2] + "xx",
		"other secret": foreign,
		"no subject":   noSubject,
		"wrong issuer": wrongIssuer,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if id, err := ts.Validate(token); err == nil {
				t.Errorf("Validate() accepted token, id = %q", id)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		if _, err := ts.Validate(expired); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
		}
	})
}
