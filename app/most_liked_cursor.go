package app

import (
	"context"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
)

type LastLikes struct {
	Val int64 `json:"val"`
}

func (ll *LastLikes) ToDBFilter() *appDb.IntFilter {
	if ll == nil {
		return nil
	}
	return &appDb.IntFilter{Val: ll.Val}
}

// MostLikedCursor pages by like count, ties broken by newest id. Counts move while
// a reader pages, so a post can show up twice or be skipped.
type MostLikedCursor struct {
	ByUser    string     `json:"byUser,omitempty"`
	LastLikes *LastLikes `json:"lastLikes,omitempty"`
	LastId    int64      `json:"lastId,omitempty"`
}

func (mlc *MostLikedCursor) Posts(ctx context.Context, db appDb.PostDatabase, opts *PostCursorOpts) ([]*model.Post, PostCursor, error) {
	posts, err := db.GetPosts(ctx, &appDb.PostsListQuery{
		ByUser: mlc.ByUser,
		PageByLikes: &appDb.ByLikesPaging{
			MaxLikes: mlc.LastLikes.ToDBFilter(),
			LastId:   mlc.LastId,
		},
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
	return posts, mlc.buildCursorForNextPage(posts), nil
}

func (mlc *MostLikedCursor) buildCursorForNextPage(previousPosts []*model.Post) *MostLikedCursor {
	last := previousPosts[len(previousPosts)-1]
	return &MostLikedCursor{
		ByUser:    mlc.ByUser,
		LastLikes: &LastLikes{Val: int64(last.LikesCount)},
		LastId:    last.Id,
	}
}
