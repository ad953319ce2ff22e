package services

import (
	"errors"
	"time"

	"github.com/AnshRaj112/vcard-backend/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// PurposeEmailConfirm namespaces account activation tokens.
	PurposeEmailConfirm = "email-confirm"
	// VerificationMaxAge is how long a confirmation link stays valid.
	VerificationMaxAge = 24 * time.Hour
)

// TokenClaims is the signed payload of a purpose-bound token. The email is
// only integrity protected, not encrypted.
type TokenClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates stateless signed tokens. Expiry is not
// embedded in the token; the caller decides the maximum age at validation.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Issue signs {email, purpose, iat}.
func (c *TokenCodec) Issue(email, purpose string) (string, error) {
	claims := &TokenClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Validate checks signature, purpose and age, and returns the embedded email.
// Any failure other than age is reported as ErrTokenInvalid.
func (c *TokenCodec) Validate(tokenString, purpose string, maxAge time.Duration) (string, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return "", apperr.TokenInvalid()
	}

	if claims.Purpose != purpose || claims.Email == "" || claims.IssuedAt == nil {
		return "", apperr.TokenInvalid()
	}

	if c.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", apperr.TokenExpired()
	}

	return claims.Email, nil
}

// IsTokenError reports whether err came from token validation.
func IsTokenError(err error) bool {
	return errors.Is(err, apperr.ErrTokenExpired) || errors.Is(err, apperr.ErrTokenInvalid)
}
