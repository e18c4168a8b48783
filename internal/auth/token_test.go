// ABOUTME: Tests for JWT token generation and verification
// ABOUTME: Covers round trips, expiry, wrong secrets, and missing claims

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier([]byte("test-secret"))

	token, err := v.Generate("operator", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	subject, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "operator" {
		t.Errorf("subject = %q, want %q", subject, "operator")
	}
}

func TestVerifier_ExpiredToken(t *testing.T) {
	v := NewVerifier([]byte("test-secret"))

	token, err := v.Generate("operator", -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = v.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	v1 := NewVerifier([]byte("secret-one"))
	v2 := NewVerifier([]byte("secret-two"))

	token, err := v1.Generate("operator", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = v2.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifier_Garbage(t *testing.T) {
	v := NewVerifier([]byte("test-secret"))

	_, err := v.Verify("not.a.token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifier_EmptySubject(t *testing.T) {
	v := NewVerifier([]byte("test-secret"))

	token, err := v.Generate("", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = v.Verify(token)
	if !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}
}
