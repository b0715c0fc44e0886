package auth

import (
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := Claims{
		Sub:   "labeler-1",
		Email: "labeler@example.com",
		Role:  "labeler",
		Iat:   time.Now().Unix(),
		Exp:   time.Now().Add(1 * time.Hour).Unix(),
	}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Email != claims.Email || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	claims := Claims{
		Sub: "labeler-1",
		Iat: time.Now().Add(-2 * time.Hour).Unix(),
		Exp: time.Now().Add(-1 * time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "a.b", "a.b.c.d", "not-a-token"} {
		if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}
