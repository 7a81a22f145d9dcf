package auth

import "errors"

// Typed conditions raised by the credential service. The messages are
// user-facing; the handler layer maps each condition to an HTTP status.
var (
	ErrEmailTaken               = errors.New("Email already exists")
	ErrNicknameTaken            = errors.New("Nickname already taken")
	ErrInvalidCredentials       = errors.New("Invalid credentials")
	ErrNotVerified              = errors.New("Please verify your email first")
	ErrInvalidVerificationToken = errors.New("Invalid verification token")
	ErrInvalidResetToken        = errors.New("Invalid reset token")
	ErrUserNotFound             = errors.New("User not found")
)
