package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nutriscan/nutriscan-be/model"
)

// ErrNotFound is returned by mutations whose target row does not exist. Getters
// return a nil value and a nil error instead.
var ErrNotFound = errors.New("not found")

type Database interface {
	UserDatabase
	PostDatabase
	ProductDatabase
	NotificationDatabase
	DeviceDatabase
	CredentialDatabase
	GetSQLDB() *sql.DB
	Close() error
}

type UpdateUser struct {
	Username          *string
	AvatarId          *string
	AvatarUrl         *string
	SelectedAllergies []string // nil leaves the allergies unchanged
	Country           *string
	CountryCode       *string
	// IsAdmin is only set from the command line
	IsAdmin *bool
}

func (uu *UpdateUser) IsEmpty() bool {
	return uu.Username == nil && uu.AvatarId == nil && uu.AvatarUrl == nil &&
		uu.SelectedAllergies == nil && uu.Country == nil && uu.CountryCode == nil &&
		uu.IsAdmin == nil
}

type UserDatabase interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, req *UpdateUser) error
	// DeleteUser returns the ids of the posts that went with the user.
	DeleteUser(ctx context.Context, id string) (deletedPostIds []int64, err error)
}

type CreatePost struct {
	Author   *model.Author
	Text     string
	ImageUrl string
}

type CreateComment struct {
	PostId int64
	Author *model.Author
	Text   string
}

type PostQueryOpts struct {
	LikeHistoryOf string
}

type IntFilter struct {
	Val int64
}

type ByLikesPaging struct {
	MaxLikes *IntFilter
	LastId   int64
}

type PostsListQueryOpts struct {
	Limit         int16
	LikeHistoryOf string
}

// PostsListQuery pages by (created_at, id) unless PageByLikes is set.
type PostsListQuery struct {
	From        *time.Time
	LastId      int64
	ByUser      string
	PageByLikes *ByLikesPaging
	*PostsListQueryOpts
}

type PostDatabase interface {
	CreatePost(ctx context.Context, req *CreatePost) (postId int64, err error)
	GetPostById(ctx context.Context, id int64, opts *PostQueryOpts) (*model.Post, error)
	GetPosts(ctx context.Context, query *PostsListQuery) ([]*model.Post, error)
	DeletePost(ctx context.Context, id int64) error
	LikePost(ctx context.Context, postId int64, userId string) (*model.LikeResult, error)
	UnlikePost(ctx context.Context, postId int64, userId string) (*model.LikeResult, error)
	CreateComment(ctx context.Context, req *CreateComment) (commentId int64, err error)
	GetCommentById(ctx context.Context, id int64) (*model.Comment, error)
	GetComments(ctx context.Context, postId int64) ([]*model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

type ProductsQuery struct {
	Status       model.ProductStatus // empty matches every status
	UpdatedSince *time.Time
}

type ProductDatabase interface {
	CreateProduct(ctx context.Context, product *model.Product) (productId int64, err error)
	GetProductById(ctx context.Context, id int64) (*model.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	GetProducts(ctx context.Context, query *ProductsQuery) ([]*model.Product, error)
	SetProductStatus(ctx context.Context, id int64, status model.ProductStatus) error
}

type NotificationDatabase interface {
	CreateNotification(ctx context.Context, notification *model.Notification) (notificationId int64, err error)
	GetNotificationsForUser(ctx context.Context, userId string, limit int) ([]*model.Notification, error)
	CountUnreadNotifications(ctx context.Context, userId string) (int, error)
	MarkNotificationRead(ctx context.Context, userId string, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userId string) (int64, error)
	PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error)
}

type DeviceDatabase interface {
	UpsertDevice(ctx context.Context, device *model.Device) (*model.Device, error)
	GetDevicesForUser(ctx context.Context, userId string) ([]*model.Device, error)
	DisableDevice(ctx context.Context, id int64) error
}

// Credential backs the local identity provider.
type Credential struct {
	UserId           string    `db:"user_id"`
	Email            string    `db:"email"`
	PasswordHash     string    `db:"password_hash"`
	TokensValidAfter time.Time `db:"tokens_valid_after"`
	CreatedAt        time.Time `db:"created_at"`
}

type CredentialDatabase interface {
	CreateCredential(ctx context.Context, credential *Credential) error
	GetCredential(ctx context.Context, userId string) (*Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	UpdateCredential(ctx context.Context, userId string, passwordHash string, tokensValidAfter time.Time) error
	DeleteCredential(ctx context.Context, userId string) error
}
