package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

const testSecret = "unit-test-secret"

func TestSignAndVerifyToken(t *testing.T) {
	token, err := SignToken("user-123", "alice", "user", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ident, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.SubjectID != "user-123" || ident.Username != "alice" || ident.Role != "user" {
		t.Fatalf("claims mismatch: %+v", ident)
	}
	if ident.IsAdmin() {
		t.Fatal("plain user reported as admin")
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, err := SignToken("user-123", "alice", "user", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyToken(token, "other-secret"); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	token, err := SignToken("user-123", "alice", "user", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyToken(token, testSecret); !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected AuthError for expired token, got %v", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := VerifyToken(tok, testSecret); !errors.Is(err, apperr.ErrAuth) {
			t.Errorf("VerifyToken(%q): expected AuthError, got %v", tok, err)
		}
	}
}

func TestAdminRole(t *testing.T) {
	token, err := SignToken("root-1", "admin", RoleAdmin, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ident, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ident.IsAdmin() {
		t.Fatal("admin role not recognized")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals the plaintext")
	}
	if !VerifyPassword("correct horse battery staple", hash) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
