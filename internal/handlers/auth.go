package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/middleware"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"github.com/AnshRaj112/vcard-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthAPI is the account lifecycle used by AuthHandler.
type AuthAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	ConfirmEmail(ctx context.Context, token string) (bool, error)
	ResendVerification(ctx context.Context, email string) (bool, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Logout(ctx context.Context, token string) error
	LogoutEverywhere(ctx context.Context, userID string) (int, error)
	SendTestEmail(ctx context.Context, to string) error
}

// Register Request
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Login Request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendRequest struct {
	Email string `json:"email"`
}

type CheckUsernameRequest struct {
	Username string `json:"username"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message"`
	User             *models.User `json:"user,omitempty"`
	Session          *SessionInfo `json:"session,omitempty"`
	Token            string       `json:"token,omitempty"`
	VerificationSent *bool        `json:"verification_sent,omitempty"`
}

type SessionInfo struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthHandler struct {
	auth         AuthAPI
	logger       *zap.Logger
	sessionTTL   time.Duration
	secureCookie bool
}

func NewAuthHandler(auth AuthAPI, sessionTTL time.Duration, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger, sessionTTL: sessionTTL, secureCookie: secureCookie}
}

// Register handles account creation. A failed verification email still
// yields 201 with verification_sent=false so the client can offer resend.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	message := "A confirmation email has been sent. Please check your inbox."
	if !res.VerificationSent {
		message = "Account created, but we could not send the confirmation email. Please request a new one."
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success:          true,
		Message:          message,
		User:             res.User,
		VerificationSent: &res.VerificationSent,
	})
}

// ConfirmEmail consumes the token from the emailed link.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	alreadyActive, err := h.auth.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if services.IsTokenError(err) {
			status, message := apperr.Status(err)
			writeJSON(w, status, map[string]interface{}{
				"success":       false,
				"message":       message,
				"resend_needed": true,
			})
			return
		}
		writeError(w, h.logger, r, err)
		return
	}

	message := "Email verified! You can now log in."
	if alreadyActive {
		message = "Account already verified. Please log in."
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message})
}

// ResendVerification mails a fresh confirmation link.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	alreadyActive, err := h.auth.ResendVerification(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	message := "Verification email resent. Please check your inbox."
	if alreadyActive {
		message = "Account already verified. Please log in."
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: message})
}

// CheckUsernameAvailability reports whether a username is free.
func (h *AuthHandler) CheckUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	var req CheckUsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	available, err := h.auth.UsernameAvailable(r.Context(), req.Username)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"available": available,
		"username":  req.Username,
		"message":   map[bool]string{true: "Username is available", false: "Username is already taken"}[available],
	})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(sess.Token, int(h.sessionTTL.Seconds())))
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Logged in successfully.",
		Session: sessionInfo(sess),
		Token:   sess.Token,
	})
}

// Logout always succeeds and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// The client forgets its token even when the store cannot be reached.
	http.SetCookie(w, h.sessionCookie("", -1))
	if err := h.auth.Logout(r.Context(), middleware.SessionToken(r)); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Logged out successfully."})
}

// LogoutAll ends every session of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	n, err := h.auth.LogoutEverywhere(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "Logged out from all devices.",
		"sessions_closed": n,
	})
}

// GetMe returns the caller's session.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Authenticated",
		Session: sessionInfo(sess),
	})
}

// SendTestEmail is a development helper: POST /api/dev/test-email?to=addr.
func (h *AuthHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if err := h.auth.SendTestEmail(r.Context(), to); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Test email sent to " + to})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func sessionInfo(sess *services.Session) *SessionInfo {
	if sess == nil {
		return nil
	}
	return &SessionInfo{UserID: sess.UserID, Username: sess.Username, CreatedAt: sess.CreatedAt}
}
