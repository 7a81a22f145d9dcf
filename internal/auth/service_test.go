package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pokerplan/internal/db"
)

func newTestService(t *testing.T) (*Service, *db.UserRepository) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	users := db.NewUserRepository(database)
	jwtService := NewJWTService("test-secret-at-least-32-characters!!", time.Hour)
	passwordService := NewPasswordService(bcrypt.MinCost, 2)

	return NewService(users, jwtService, passwordService, time.Hour), users
}

func registerTestUser(t *testing.T, svc *Service, email, nickname string) *RegistrationResult {
	t.Helper()

	result, err := svc.Register(context.Background(), RegisterParams{
		Email:    email,
		Nickname: nickname,
		Password: "sw0rdfish!",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

func registerVerifiedUser(t *testing.T, svc *Service, email, nickname string) *RegistrationResult {
	t.Helper()

	result := registerTestUser(t, svc, email, nickname)
	if err := svc.VerifyEmail(context.Background(), result.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	return result
}

func TestRegisterCreatesUnverifiedUser(t *testing.T) {
	svc, users := newTestService(t)

	result := registerTestUser(t, svc, "Alice@Example.COM", "alice")

	if result.Email != "alice@example.com" {
		t.Fatalf("email = %q, want lowercased %q", result.Email, "alice@example.com")
	}
	if result.VerificationToken == "" {
		t.Fatal("Register() returned empty verification token")
	}

	user, err := users.FindByID(context.Background(), result.UserID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if user.Verified {
		t.Fatal("new user is already verified")
	}
	if user.PasswordHash == "sw0rdfish!" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterRejectsConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestUser(t, svc, "alice@example.com", "alice")

	tests := []struct {
		name     string
		email    string
		nickname string
		want     error
	}{
		{name: "email_taken", email: "alice@example.com", nickname: "fresh", want: ErrEmailTaken},
		{name: "email_taken_case_insensitive", email: "ALICE@example.com", nickname: "fresh", want: ErrEmailTaken},
		{name: "nickname_taken", email: "fresh@example.com", nickname: "alice", want: ErrNicknameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), RegisterParams{
				Email:    tt.email,
				Nickname: tt.nickname,
				Password: "sw0rdfish!",
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoginByEmailAndNickname(t *testing.T) {
	svc, _ := newTestService(t)
	result := registerVerifiedUser(t, svc, "alice@example.com", "alice")

	for _, identifier := range []string{"alice@example.com", "ALICE@example.com", "alice"} {
		user, token, err := svc.Login(context.Background(), identifier, "sw0rdfish!")
		if err != nil {
			t.Fatalf("Login(%q) error = %v", identifier, err)
		}
		if user.ID != result.UserID {
			t.Fatalf("Login(%q) user = %q, want %q", identifier, user.ID, result.UserID)
		}
		if token == "" {
			t.Fatalf("Login(%q) returned empty token", identifier)
		}
	}
}

func TestLoginIdentifierWithAtIsAlwaysEmail(t *testing.T) {
	svc, _ := newTestService(t)
	registerVerifiedUser(t, svc, "alice@example.com", "alice")

	// No user has this email; even if a nickname happened to look similar,
	// the '@' forces the email lookup path.
	_, _, err := svc.Login(context.Background(), "alice@elsewhere.com", "sw0rdfish!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	registerVerifiedUser(t, svc, "alice@example.com", "alice")
	registerTestUser(t, svc, "bob@example.com", "bob")

	tests := []struct {
		name       string
		identifier string
		password   string
		want       error
	}{
		{name: "unknown_email", identifier: "ghost@example.com", password: "sw0rdfish!", want: ErrInvalidCredentials},
		{name: "unknown_nickname", identifier: "ghost", password: "sw0rdfish!", want: ErrInvalidCredentials},
		{name: "wrong_password", identifier: "alice", password: "not-the-password", want: ErrInvalidCredentials},
		{name: "unverified_account", identifier: "bob", password: "sw0rdfish!", want: ErrNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.identifier, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyEmailIsSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	result := registerTestUser(t, svc, "alice@example.com", "alice")

	if err := svc.VerifyEmail(context.Background(), result.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if err := svc.VerifyEmail(context.Background(), result.VerificationToken); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("second VerifyEmail() error = %v, want ErrInvalidVerificationToken", err)
	}
	if err := svc.VerifyEmail(context.Background(), "bogus"); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("VerifyEmail(bogus) error = %v, want ErrInvalidVerificationToken", err)
	}
}

func TestForgotPasswordOutcomes(t *testing.T) {
	svc, _ := newTestService(t)
	registerVerifiedUser(t, svc, "alice@example.com", "alice")

	token, ok, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if !ok || token == "" {
		t.Fatalf("ForgotPassword() = (%q, %v), want a token for a known email", token, ok)
	}

	token, ok, err = svc.ForgotPassword(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword(unknown) error = %v", err)
	}
	if ok || token != "" {
		t.Fatalf("ForgotPassword(unknown) = (%q, %v), want no token", token, ok)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	svc, _ := newTestService(t)
	registerVerifiedUser(t, svc, "alice@example.com", "alice")

	token, ok, err := svc.ForgotPassword(context.Background(), "alice@example.com")
	if err != nil || !ok {
		t.Fatalf("ForgotPassword() = (%v, %v)", ok, err)
	}

	if err := svc.ResetPassword(context.Background(), token, "new-password-1"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password no longer works, new one does.
	if _, _, err := svc.Login(context.Background(), "alice", "sw0rdfish!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(old password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(context.Background(), "alice", "new-password-1"); err != nil {
		t.Fatalf("Login(new password) error = %v", err)
	}

	// The token was consumed by the first reset.
	if err := svc.ResetPassword(context.Background(), token, "new-password-2"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("second ResetPassword() error = %v, want ErrInvalidResetToken", err)
	}
}

func TestResetPasswordRejectsBogusToken(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.ResetPassword(context.Background(), "bogus", "whatever-1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("ResetPassword() error = %v, want ErrInvalidResetToken", err)
	}
}

func TestGetMe(t *testing.T) {
	svc, _ := newTestService(t)
	result := registerTestUser(t, svc, "alice@example.com", "alice")

	user, err := svc.GetMe(context.Background(), result.UserID)
	if err != nil {
		t.Fatalf("GetMe() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email = %q, want %q", user.Email, "alice@example.com")
	}

	if _, err := svc.GetMe(context.Background(), "usr_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetMe(missing) error = %v, want ErrUserNotFound", err)
	}
}
