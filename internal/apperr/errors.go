package apperr

import (
	"errors"
	"net/http"
)

// Error kinds. Callers branch on these with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrDependency         = errors.New("dependency failure")
)

// AppError carries a user-facing message and HTTP status next to the error kind.
// Cause is the underlying failure; it is kept for logs and never sent to clients.
type AppError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func New(status int, kind error, message string) *AppError {
	return &AppError{Status: status, Message: message, Err: kind}
}

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, ErrValidation, message)
}

func DuplicateEmail() *AppError {
	return New(http.StatusConflict, ErrDuplicateEmail, "Email already exists!")
}

func DuplicateUsername() *AppError {
	return New(http.StatusConflict, ErrDuplicateUsername, "Username already taken, choose another.")
}

func InvalidCredentials() *AppError {
	return New(http.StatusUnauthorized, ErrInvalidCredentials, "Invalid email or password")
}

func NotVerified() *AppError {
	return New(http.StatusForbidden, ErrNotVerified, "Please verify your email before logging in. Use resend if needed.")
}

func TokenExpired() *AppError {
	return New(http.StatusGone, ErrTokenExpired, "The verification link has expired. Request a new one.")
}

func TokenInvalid() *AppError {
	return New(http.StatusBadRequest, ErrTokenInvalid, "The verification link is invalid.")
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, ErrNotFound, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, ErrForbidden, message)
}

func Unauthenticated(message string) *AppError {
	return New(http.StatusUnauthorized, ErrUnauthenticated, message)
}

// Dependency wraps a store or mail transport failure.
func Dependency(message string, cause error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     ErrDependency,
		Cause:   cause,
	}
}

// Status maps any error to an HTTP status and a message safe to show clients.
func Status(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, appErr.Message
	}
	return http.StatusInternalServerError, "internal server error"
}
