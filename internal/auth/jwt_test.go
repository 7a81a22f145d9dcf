package auth

import (
	"strings"
	"testing"
	"time"

	"pokerplan/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       "usr_1",
		Email:    "alice@example.com",
		Nickname: "alice",
		Verified: true,
	}
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-at-least-32-characters!!", time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "usr_1" {
		t.Fatalf("userId = %q, want %q", claims.UserID, "usr_1")
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("email = %q, want %q", claims.Email, "alice@example.com")
	}
	if claims.Nickname != "alice" {
		t.Fatalf("nickname = %q, want %q", claims.Nickname, "alice")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret-at-least-32-characters!!", -time.Minute)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := svc.Validate(token); err == nil {
		t.Fatal("Validate() accepted an expired token")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService("test-secret-at-least-32-characters!!", time.Hour)
	verifier := NewJWTService("another-secret-at-least-32-chars!!!!", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Fatal("Validate() accepted a token signed with a different secret")
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := NewJWTService("test-secret-at-least-32-characters!!", time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts, want 3", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := svc.Validate(tampered); err == nil {
		t.Fatal("Validate() accepted a tampered token")
	}
}
