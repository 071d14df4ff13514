package app

import (
	"context"
	"time"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
)

// MostRecentCursor pages newest first. A zero cursor starts at the top of the feed.
type MostRecentCursor struct {
	ByUser   string     `json:"byUser,omitempty"`
	LastDate *time.Time `json:"lastDate,omitempty"`
	LastId   int64      `json:"lastId,omitempty"`
}

func (mrc *MostRecentCursor) Posts(ctx context.Context, db appDb.PostDatabase, opts *PostCursorOpts) ([]*model.Post, PostCursor, error) {
	posts, err := db.GetPosts(ctx, &appDb.PostsListQuery{
		From:   mrc.LastDate,
		LastId: mrc.LastId,
		ByUser: mrc.ByUser,
		PostsListQueryOpts: &appDb.PostsListQueryOpts{
			Limit:         opts.Limit,
			LikeHistoryOf: opts.ViewerId,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if isLastPage(posts, opts.Limit) {
		return posts, nil, nil
	}
	return posts, mrc.buildCursorForNextPage(posts), nil
}

func (mrc *MostRecentCursor) buildCursorForNextPage(previousPosts []*model.Post) *MostRecentCursor {
	last := previousPosts[len(previousPosts)-1]
	lastDate := last.CreatedAt
	return &MostRecentCursor{
		ByUser:   mrc.ByUser,
		LastDate: &lastDate,
		LastId:   last.Id,
	}
}
