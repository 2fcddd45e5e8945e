package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndVerifyPassphrase(t *testing.T) {
	hash, err := HashPassphrase("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassphrase: %v", err)
	}
	if err := VerifyPassphrase(hash, "correct horse battery"); err != nil {
		t.Errorf("VerifyPassphrase: %v", err)
	}
	if err := VerifyPassphrase(hash, "wrong"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Errorf("wrong passphrase: err = %v, want ErrInvalidPassphrase", err)
	}
}

func TestHashPassphraseRejectsShort(t *testing.T) {
	if _, err := HashPassphrase("short"); !errors.Is(err, ErrWeakPassphrase) {
		t.Errorf("err = %v, want ErrWeakPassphrase", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "owner" {
		t.Errorf("subject = %q, want owner", claims.Subject)
	}
}

func TestJWTRejectsTampering(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := other.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign signature: err = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: err = %v, want ErrInvalidToken", err)
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: err = %v, want ErrInvalidToken", err)
	}
}
