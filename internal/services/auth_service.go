package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/AnshRaj112/vcard-backend/internal/models"
	"github.com/AnshRaj112/vcard-backend/pkg/utils"
	"go.uber.org/zap"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	SetActive(ctx context.Context, email string) error
	TouchVerificationSentAt(ctx context.Context, email string, at time.Time) error
}

// SessionManager creates and destroys authenticated sessions.
type SessionManager interface {
	Create(ctx context.Context, userID, username string) (*Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyAllForUser(ctx context.Context, userID string) (int, error)
}

// RegisterInput is the registration form after trimming.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// RegisterResult reports the created user and whether the verification email went out.
// When VerificationSent is false the account exists and the client should use resend.
type RegisterResult struct {
	User             *models.User
	VerificationSent bool
}

// AuthService runs registration, email verification and login.
//
// Account states: a stored user with IsActive=false is pending verification;
// IsActive=true is active and may log in. Confirmation tokens are stateless
// and stay valid for their whole age window, so confirming twice is a no-op.
type AuthService struct {
	users     UserStore
	sessions  SessionManager
	tokens    *TokenCodec
	mailer    Mailer
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(users UserStore, sessions SessionManager, tokens *TokenCodec, mailer Mailer, publicURL string, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an inactive user and dispatches a confirmation email.
// A mail failure does not roll the user back.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = utils.NormalizeEmail(in.Email)

	if err := utils.ValidateUsername(in.Username); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password required.")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Dependency("Failed to create account", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Username:               in.Username,
		Email:                  in.Email,
		PasswordHash:           hash,
		IsActive:               false,
		CreatedAt:              now,
		LastVerificationSentAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()))

	result := &RegisterResult{User: user, VerificationSent: true}
	if err := s.sendVerification(ctx, user.Email); err != nil {
		s.logger.Error("failed to send verification email", zap.String("email", user.Email), zap.Error(err))
		result.VerificationSent = false
	}
	return result, nil
}

// ConfirmEmail activates the account named by a confirmation token. It
// returns true when the account was already active.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (bool, error) {
	email, err := s.tokens.Validate(token, PurposeEmailConfirm, VerificationMaxAge)
	if err != nil {
		return false, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, apperr.NotFound("User not found. Please register.")
		}
		return false, err
	}

	if user.IsActive {
		return true, nil
	}

	if err := s.users.SetActive(ctx, email); err != nil {
		return false, err
	}
	s.logger.Info("email verified", zap.String("user_id", user.ID.Hex()))
	return false, nil
}

// ResendVerification issues a fresh confirmation token for a pending account.
// It returns true, without sending anything, when the account is already active.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (bool, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return false, apperr.Validation("Enter your email.")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, apperr.NotFound("No account with that email.")
		}
		return false, err
	}

	if user.IsActive {
		return true, nil
	}

	if err := s.users.TouchVerificationSentAt(ctx, email, s.now()); err != nil {
		return false, err
	}
	if err := s.sendVerification(ctx, email); err != nil {
		s.logger.Error("failed to resend verification email", zap.String("email", email), zap.Error(err))
		return false, apperr.Dependency("Failed to resend verification email. Try again later.", err)
	}
	return false, nil
}

// UsernameAvailable reports whether no user holds username.
func (s *AuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := utils.ValidateUsername(username); err != nil {
		return false, apperr.Validation(err.Error())
	}

	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// Login verifies credentials and opens a session. Unverified accounts are
// refused with ErrNotVerified and get no session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}

	if !utils.VerifyPassword(password, user.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	if !user.IsActive {
		return nil, apperr.NotVerified()
	}

	sess, err := s.sessions.Create(ctx, user.ID.Hex(), user.DisplayName())
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", sess.UserID))
	return sess, nil
}

// Logout ends the session behind token. It succeeds when already logged out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// LogoutEverywhere ends every session of the user.
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.DestroyAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("all sessions revoked", zap.String("user_id", userID), zap.Int("count", n))
	return n, nil
}

// SendTestEmail dispatches a verification email to an arbitrary address.
func (s *AuthService) SendTestEmail(ctx context.Context, to string) error {
	to = utils.NormalizeEmail(to)
	if err := utils.ValidateEmail(to); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := s.sendVerification(ctx, to); err != nil {
		return apperr.Dependency("Failed to send test email", err)
	}
	return nil
}

// ConfirmationURL is the link embedded in verification emails.
func (s *AuthService) ConfirmationURL(token string) string {
	return s.publicURL + "/api/auth/confirm/" + url.PathEscape(token)
}

func (s *AuthService) sendVerification(ctx context.Context, email string) error {
	token, err := s.tokens.Issue(email, PurposeEmailConfirm)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	body, err := renderVerificationEmail(s.ConfirmationURL(token))
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	return s.mailer.Send(ctx, email, verificationSubject, body)
}
