package services

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"
)

type firebaseAuthClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseIdentity delegates credentials to Firebase Auth. Apps sign in with the
// Firebase client SDK and send the resulting ID token.
type FirebaseIdentity struct {
	client firebaseAuthClient
}

func NewFirebaseIdentity(client *auth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

func (fi *FirebaseIdentity) Verify(ctx context.Context, token string) (*Claims, error) {
	verified, err := fi.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := verified.Claims["email"].(string)
	return &Claims{
		UserId:   verified.UID,
		Email:    email,
		IssuedAt: time.Unix(verified.IssuedAt, 0),
	}, nil
}

func (fi *FirebaseIdentity) SignUp(ctx context.Context, email string, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	record, err := fi.client.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return record.UID, nil
}

func (fi *FirebaseIdentity) SignIn(ctx context.Context, email string, password string) (*Session, error) {
	return nil, ErrUnsupported
}

// SignOut revokes every refresh token so existing ID tokens fail the revocation check.
func (fi *FirebaseIdentity) SignOut(ctx context.Context, userId string) error {
	return fi.client.RevokeRefreshTokens(ctx, userId)
}

// ChangePassword relies on the client having re-authenticated with the current
// password before calling, which is how Firebase apps confirm it.
func (fi *FirebaseIdentity) ChangePassword(ctx context.Context, userId string, current string, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	if _, err := fi.client.UpdateUser(ctx, userId, (&auth.UserToUpdate{}).Password(next)); err != nil {
		return err
	}
	return fi.client.RevokeRefreshTokens(ctx, userId)
}

func (fi *FirebaseIdentity) DeleteAccount(ctx context.Context, userId string) error {
	if err := fi.client.DeleteUser(ctx, userId); err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}
