package app

import (
	"context"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
)

type PostCursorOpts struct {
	Limit int16
	// ViewerId fills in likedByMe. Empty for anonymous readers.
	ViewerId string
}

// PostCursor returns one page of posts and the cursor for the page after it. The
// returned cursor is nil once the feed is exhausted.
type PostCursor interface {
	Posts(ctx context.Context, db appDb.PostDatabase, opts *PostCursorOpts) (posts []*model.Post, next PostCursor, err error)
}

type PostCursorType string

func isLastPage(posts []*model.Post, limit int16) bool {
	return len(posts) == 0 || (limit > 0 && len(posts) < int(limit))
}
