package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	db2 "github.com/nutriscan/nutriscan-be/db"
	"golang.org/x/crypto/bcrypt"
)

const localIssuer = "nutriscan"

// LocalIdentity keeps bcrypt hashed credentials in the database and issues HS256 tokens.
// Signing out moves tokens_valid_after forward, which invalidates every older token.
type LocalIdentity struct {
	creds  db2.CredentialDatabase
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLocalIdentity(creds db2.CredentialDatabase, secret string, ttl time.Duration) *LocalIdentity {
	return &LocalIdentity{
		creds:  creds,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (li *LocalIdentity) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return li.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(li.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	cred, err := li.creds.GetCredential(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if cred == nil || claims.IssuedAt.Time.Before(cred.TokensValidAfter) {
		return nil, ErrInvalidToken
	}
	return &Claims{
		UserId:   cred.UserId,
		Email:    cred.Email,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}

func (li *LocalIdentity) SignUp(ctx context.Context, email string, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	userId := uuid.NewString()
	if err := li.creds.CreateCredential(ctx, &db2.Credential{
		UserId:           userId,
		Email:            normalizeEmail(email),
		PasswordHash:     string(hash),
		TokensValidAfter: li.now().UTC().Truncate(time.Second),
	}); err != nil {
		if db2.IsDupKeyErr(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return userId, nil
}

func (li *LocalIdentity) SignIn(ctx context.Context, email string, password string) (*Session, error) {
	cred, err := li.creds.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return li.issue(cred)
}

func (li *LocalIdentity) issue(cred *db2.Credential) (*Session, error) {
	// jwt timestamps have second precision; a sign out in the current second must not
	// invalidate the token issued right after it
	issuedAt := li.now().UTC().Truncate(time.Second)
	if issuedAt.Before(cred.TokensValidAfter) {
		issuedAt = cred.TokensValidAfter.UTC()
	}
	userId := cred.UserId
	expiresAt := issuedAt.Add(li.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    localIssuer,
		Subject:   userId,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(li.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{UserId: userId, Token: signed, ExpiresAt: expiresAt}, nil
}

func (li *LocalIdentity) SignOut(ctx context.Context, userId string) error {
	cred, err := li.creds.GetCredential(ctx, userId)
	if err != nil {
		return err
	}
	if cred == nil {
		return db2.ErrNotFound
	}
	return li.creds.UpdateCredential(ctx, userId, cred.PasswordHash, li.nextValidAfter())
}

func (li *LocalIdentity) ChangePassword(ctx context.Context, userId string, current string, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	cred, err := li.creds.GetCredential(ctx, userId)
	if err != nil {
		return err
	}
	if cred == nil {
		return db2.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return li.creds.UpdateCredential(ctx, userId, string(hash), li.nextValidAfter())
}

func (li *LocalIdentity) DeleteAccount(ctx context.Context, userId string) error {
	if err := li.creds.DeleteCredential(ctx, userId); err != nil && !errors.Is(err, db2.ErrNotFound) {
		return err
	}
	return nil
}

// nextValidAfter rejects tokens issued up to and including the current second.
func (li *LocalIdentity) nextValidAfter() time.Time {
	return li.now().UTC().Truncate(time.Second).Add(time.Second)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
