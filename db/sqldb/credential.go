package sqldb

import (
	"context"
	"database/sql"
	"time"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/upper/db/v4"
)

type CredentialDB struct {
	sess db.Session
}

func getCredentialDB(sess db.Session) *CredentialDB {
	return &CredentialDB{sess}
}

func (cdb *CredentialDB) CreateCredential(ctx context.Context, credential *db2.Credential) error {
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now()
	}
	_, err := execTx(ctx, cdb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			InsertInto("credential").
			Columns("user_id", "email", "password_hash", "tokens_valid_after", "created_at").
			Values(credential.UserId, credential.Email, credential.PasswordHash,
				credential.TokensValidAfter.UTC(), credential.CreatedAt).
			ExecContext(ctx)
	})
	return err
}

func (cdb *CredentialDB) GetCredential(ctx context.Context, userId string) (*db2.Credential, error) {
	return cdb.getCredential(ctx, "user_id = ?", userId)
}

func (cdb *CredentialDB) GetCredentialByEmail(ctx context.Context, email string) (*db2.Credential, error) {
	return cdb.getCredential(ctx, "email = ?", email)
}

func (cdb *CredentialDB) getCredential(ctx context.Context, where string, arg interface{}) (*db2.Credential, error) {
	var credential db2.Credential
	if err := cdb.sess.SQL().
		Select("*").
		From("credential").
		Where(where, arg).
		IteratorContext(ctx).
		One(&credential); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

func (cdb *CredentialDB) UpdateCredential(ctx context.Context, userId string, passwordHash string, tokensValidAfter time.Time) error {
	res, err := cdb.sess.SQL().
		Update("credential").
		Set("password_hash = ?, tokens_valid_after = ?", passwordHash, tokensValidAfter.UTC()).
		Where("user_id = ?", userId).
		ExecContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (cdb *CredentialDB) DeleteCredential(ctx context.Context, userId string) error {
	res, err := cdb.sess.SQL().
		DeleteFrom("credential").
		Where("user_id = ?", userId).
		ExecContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
