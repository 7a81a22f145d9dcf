package api

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"pokerplan/internal/auth"
	"pokerplan/internal/email"
)

var (
	nicknameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

	// profileSanitizer strips any markup from user-supplied profile fields
	// before they are stored.
	profileSanitizer = bluemonday.StrictPolicy()
)

type AuthHandler struct {
	authService   *auth.Service
	emailService  *email.SMTPService
	resetTokenTTL time.Duration
}

func NewAuthHandler(authService *auth.Service, emailService *email.SMTPService, resetTokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		emailService:  emailService,
		resetTokenTTL: resetTokenTTL,
	}
}

// POST /auth/register
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	Nickname  string  `json:"nickname" validate:"required,min=3,max=32"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName *string `json:"firstName" validate:"omitempty,max=64"`
	LastName  *string `json:"lastName" validate:"omitempty,max=64"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if !nicknameRegex.MatchString(req.Nickname) {
		badRequest(w, "Nickname must be 3-32 characters and contain only letters, numbers, underscores, and hyphens")
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Email:     req.Email,
		Nickname:  req.Nickname,
		Password:  req.Password,
		FirstName: sanitizeProfileField(req.FirstName),
		LastName:  sanitizeProfileField(req.LastName),
	})
	if errors.Is(err, auth.ErrEmailTaken) || errors.Is(err, auth.ErrNicknameTaken) {
		badRequest(w, err.Error())
		return
	}
	if err != nil {
		slog.Error("error registering user", "error", err)
		internalError(w)
		return
	}

	if err := h.emailService.SendVerificationEmail(result.Email, result.VerificationToken); err != nil {
		// The account exists either way; verification can be re-sent.
		slog.Error("error sending verification email", "error", err, "user_id", result.UserID)
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully. Please check your email for verification.",
		UserID:  result.UserID,
	})
}

// POST /auth/login
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  any    `json:"user"`
	Token string `json:"token"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Identifier, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrNotVerified) {
		unauthorized(w, err.Error())
		return
	}
	if err != nil {
		slog.Error("error logging in", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{User: user, Token: token})
}

// POST /auth/verify
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidVerificationToken) {
			badRequest(w, err.Error())
			return
		}
		slog.Error("error verifying email", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully"})
}

// POST /auth/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	token, ok, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		slog.Error("error handling forgot password", "error", err)
		internalError(w)
		return
	}

	if ok {
		// Delivery failures must not change the response below.
		if err := h.emailService.SendPasswordResetEmail(auth.NormalizeEmail(req.Email), token, h.resetTokenTTL); err != nil {
			slog.Error("error sending password reset email", "error", err)
		}
	}

	// Byte-identical whether or not the email exists.
	writeJSON(w, http.StatusOK, MessageResponse{Message: "If email exists, password reset link has been sent"})
}

// POST /auth/reset-password
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			badRequest(w, err.Error())
			return
		}
		slog.Error("error resetting password", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

// GET /auth/me
type MeResponse struct {
	User any `json:"user"`
}

func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r)
	if !ok {
		unauthorized(w, "User not found in context")
		return
	}

	user, err := h.authService.GetMe(r.Context(), identity.UserID)
	if errors.Is(err, auth.ErrUserNotFound) {
		notFound(w, err.Error())
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

func sanitizeProfileField(value *string) *string {
	if value == nil {
		return nil
	}
	sanitized := strings.TrimSpace(profileSanitizer.Sanitize(*value))
	if sanitized == "" {
		return nil
	}
	return &sanitized
}
