package model

import (
	"strings"
	"time"
)

type Post struct {
	Id int64 `json:"id"`
	*Author
	Text          string    `json:"text"`
	ImageUrl      string    `json:"imageUrl,omitempty"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	LikedByMe     bool      `json:"likedByMe"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Post) CanDelete(user *User) bool {
	return user != nil && (user.IsAdmin || user.Id == p.Author.Id)
}

type Comment struct {
	Id     int64 `json:"id"`
	PostId int64 `json:"postId"`
	*Author
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) CanDelete(user *User) bool {
	return user != nil && (user.IsAdmin || user.Id == c.Author.Id)
}

// LikeResult is returned by like and unlike. Changed is false when the call was a no-op.
type LikeResult struct {
	PostId     int64 `json:"postId"`
	Liked      bool  `json:"liked"`
	LikesCount int   `json:"likesCount"`
	Changed    bool  `json:"-"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
