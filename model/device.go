package model

import "time"

type Device struct {
	Id          int64     `db:"id,omitempty" json:"id"`
	UserId      string    `db:"user_id" json:"-"`
	Platform    string    `db:"platform" json:"platform"`
	TokenHash   string    `db:"token_hash" json:"-"`
	EndpointArn string    `db:"endpoint_arn" json:"-"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
