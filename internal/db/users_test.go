package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

func createTestUser(t *testing.T, repo *UserRepository, email, nickname, verificationToken string) string {
	t.Helper()

	user, err := repo.Create(context.Background(), CreateUserParams{
		Email:             email,
		Nickname:          nickname,
		PasswordHash:      "$2a$10$fakefakefakefakefakefake",
		VerificationToken: verificationToken,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user.ID
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	createTestUser(t, repo, "alice@example.com", "alice", "tok_a")

	tests := []struct {
		name     string
		email    string
		nickname string
	}{
		{name: "duplicate_email", email: "alice@example.com", nickname: "other"},
		{name: "duplicate_nickname", email: "other@example.com", nickname: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(context.Background(), CreateUserParams{
				Email:             tt.email,
				Nickname:          tt.nickname,
				PasswordHash:      "x",
				VerificationToken: "tok_" + tt.name,
			})
			if !errors.Is(err, ErrDuplicate) {
				t.Fatalf("Create() error = %v, want ErrDuplicate", err)
			}
		})
	}
}

func TestFindByIdentifiers(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	id := createTestUser(t, repo, "alice@example.com", "alice", "tok_a")

	byEmail, err := repo.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != id {
		t.Fatalf("FindByEmail() id = %q, want %q", byEmail.ID, id)
	}

	byNickname, err := repo.FindByNickname(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByNickname() error = %v", err)
	}
	if byNickname.ID != id {
		t.Fatalf("FindByNickname() id = %q, want %q", byNickname.ID, id)
	}

	if _, err := repo.FindByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByEmail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestVerifyConsumesTokenOnce(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	createTestUser(t, repo, "alice@example.com", "alice", "tok_verify")

	user, err := repo.Verify(context.Background(), "tok_verify")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !user.Verified {
		t.Fatal("Verify() returned user with verified = false")
	}
	if user.VerificationToken != nil {
		t.Fatalf("Verify() left verification token %q", *user.VerificationToken)
	}

	if _, err := repo.Verify(context.Background(), "tok_verify"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Verify() error = %v, want ErrNotFound", err)
	}
}

func TestVerifyConcurrentCallsYieldOneSuccess(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	createTestUser(t, repo, "alice@example.com", "alice", "tok_race")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Verify(context.Background(), "tok_race")
		}(i)
	}
	wg.Wait()

	successes := 0
	for i, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrNotFound):
		default:
			t.Fatalf("Verify() call %d error = %v", i, err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestUpdatePasswordConsumesResetToken(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	id := createTestUser(t, repo, "alice@example.com", "alice", "tok_a")

	if err := repo.SetResetToken(context.Background(), id, "reset_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}

	user, err := repo.UpdatePassword(context.Background(), "reset_1", "new_hash")
	if err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if user.PasswordHash != "new_hash" {
		t.Fatalf("password hash = %q, want %q", user.PasswordHash, "new_hash")
	}
	if user.ResetToken != nil {
		t.Fatalf("UpdatePassword() left reset token %q", *user.ResetToken)
	}

	if _, err := repo.UpdatePassword(context.Background(), "reset_1", "another_hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second UpdatePassword() error = %v, want ErrNotFound", err)
	}
}

func TestUpdatePasswordRejectsExpiredToken(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	id := createTestUser(t, repo, "alice@example.com", "alice", "tok_a")

	if err := repo.SetResetToken(context.Background(), id, "reset_old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}

	if _, err := repo.UpdatePassword(context.Background(), "reset_old", "new_hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdatePassword(expired) error = %v, want ErrNotFound", err)
	}
}

func TestSetResetTokenReplacesPrevious(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	id := createTestUser(t, repo, "alice@example.com", "alice", "tok_a")

	if err := repo.SetResetToken(context.Background(), id, "reset_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}
	if err := repo.SetResetToken(context.Background(), id, "reset_2", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}

	if _, err := repo.UpdatePassword(context.Background(), "reset_1", "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdatePassword(superseded) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.UpdatePassword(context.Background(), "reset_2", "h"); err != nil {
		t.Fatalf("UpdatePassword(current) error = %v", err)
	}
}

func TestClearExpiredResetTokens(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	expiredID := createTestUser(t, repo, "old@example.com", "old", "tok_1")
	activeID := createTestUser(t, repo, "new@example.com", "new", "tok_2")

	if err := repo.SetResetToken(context.Background(), expiredID, "reset_expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}
	if err := repo.SetResetToken(context.Background(), activeID, "reset_active", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}

	cleared, err := repo.ClearExpiredResetTokens(context.Background())
	if err != nil {
		t.Fatalf("ClearExpiredResetTokens() error = %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}

	if _, err := repo.FindByResetToken(context.Background(), "reset_expired"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByResetToken(expired) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindByResetToken(context.Background(), "reset_active"); err != nil {
		t.Fatalf("FindByResetToken(active) error = %v", err)
	}
}
