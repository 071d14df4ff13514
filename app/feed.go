package app

import (
	"context"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
)

type FeedPage struct {
	Posts []*model.Post `json:"posts"`
	// Cursor is null on the last page.
	Cursor *TaggedUnionCursor `json:"cursor"`
}

func GetFeed(ctx context.Context, db appDb.PostDatabase, viewerId string, cursor *TaggedUnionCursor, limit int16) (*FeedPage, error) {
	if cursor == nil || cursor.PostCursor == nil {
		var err error
		cursorType := PostCursorTypeMostRecent
		if cursor != nil {
			cursorType = cursor.CursorType
		}
		if cursor, err = NewTaggedUnionCursor(cursorType, ""); err != nil {
			return nil, err
		}
	}

	posts, next, err := cursor.Posts(ctx, db, &PostCursorOpts{
		Limit:    limit,
		ViewerId: viewerId,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*model.Post{}
	}
	page := &FeedPage{Posts: posts}
	if next != nil {
		page.Cursor = &TaggedUnionCursor{PostCursor: next, CursorType: cursor.CursorType}
	}
	return page, nil
}
