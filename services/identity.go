package services

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUnsupported        = errors.New("not supported by this identity provider")
)

const MinPasswordLength = 6

// Claims identify the caller of a request.
type Claims struct {
	UserId   string
	Email    string
	IssuedAt time.Time
}

// Session is returned by providers that issue their own tokens.
type Session struct {
	UserId    string    `json:"uid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity owns credentials. Profiles live in the database and are keyed by the
// user id the provider hands out.
type Identity interface {
	Verify(ctx context.Context, token string) (*Claims, error)
	SignUp(ctx context.Context, email string, password string) (userId string, err error)
	SignIn(ctx context.Context, email string, password string) (*Session, error)
	SignOut(ctx context.Context, userId string) error
	ChangePassword(ctx context.Context, userId string, current string, next string) error
	DeleteAccount(ctx context.Context, userId string) error
}

func checkPassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
