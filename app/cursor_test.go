package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedUnionCursorRoundTrip(t *testing.T) {
	var cursor TaggedUnionCursor
	require.NoError(t, json.Unmarshal([]byte(`{"cursorType":"MOST_LIKED","cursor":{"byUser":"u1","lastLikes":{"val":4},"lastId":9}}`), &cursor))

	liked, ok := cursor.PostCursor.(*MostLikedCursor)
	require.True(t, ok)
	assert.Equal(t, "u1", liked.ByUser)
	assert.Equal(t, int64(4), liked.LastLikes.Val)
	assert.Equal(t, int64(9), liked.LastId)

	raw, err := json.Marshal(&cursor)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cursorType":"MOST_LIKED","cursor":{"byUser":"u1","lastLikes":{"val":4},"lastId":9}}`, string(raw))
}

func TestTaggedUnionCursorWithoutBody(t *testing.T) {
	var cursor TaggedUnionCursor
	require.NoError(t, json.Unmarshal([]byte(`{"cursorType":"MOST_RECENT"}`), &cursor))
	assert.Equal(t, &MostRecentCursor{}, cursor.PostCursor)
}

func TestTaggedUnionCursorUnknownType(t *testing.T) {
	var cursor TaggedUnionCursor
	err := json.Unmarshal([]byte(`{"cursorType":"SUBBED"}`), &cursor)
	assert.ErrorIs(t, err, ErrUnknownCursorType)

	_, err = NewTaggedUnionCursor("SUBBED", "")
	assert.ErrorIs(t, err, ErrUnknownCursorType)
}

func TestGetFeedPagesUntilExhausted(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "u1")
	for i := 0; i < 5; i++ {
		_, err := sdb.CreatePost(ctx, &appDb.CreatePost{Author: author.AsAuthor(), Text: fmt.Sprintf("post %d", i)})
		require.NoError(t, err)
	}

	var seen []int64
	var cursor *TaggedUnionCursor
	for pages := 0; pages < 5; pages++ {
		page, err := GetFeed(ctx, sdb, "u1", cursor, 2)
		require.NoError(t, err)
		for _, post := range page.Posts {
			seen = append(seen, post.Id)
		}
		if page.Cursor == nil {
			break
		}
		// the cursor survives a trip through the client
		raw, err := json.Marshal(page.Cursor)
		require.NoError(t, err)
		cursor = &TaggedUnionCursor{}
		require.NoError(t, json.Unmarshal(raw, cursor))
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, seen)
}

func TestGetFeedMostLiked(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "u1")
	createUser(t, sdb, "u2")
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := sdb.CreatePost(ctx, &appDb.CreatePost{Author: author.AsAuthor(), Text: "post"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, liker := range []string{"u1", "u2"} {
		_, err := sdb.LikePost(ctx, ids[0], liker)
		require.NoError(t, err)
	}
	_, err := sdb.LikePost(ctx, ids[2], "u2")
	require.NoError(t, err)

	cursor, err := NewTaggedUnionCursor(PostCursorTypeMostLiked, "")
	require.NoError(t, err)
	page, err := GetFeed(ctx, sdb, "u2", cursor, 10)
	require.NoError(t, err)

	require.Len(t, page.Posts, 3)
	assert.Equal(t, []int64{ids[0], ids[2], ids[1]}, []int64{page.Posts[0].Id, page.Posts[1].Id, page.Posts[2].Id})
	assert.True(t, page.Posts[0].LikedByMe)
	assert.False(t, page.Posts[2].LikedByMe)
	assert.Nil(t, page.Cursor)
}

func TestGetFeedByAuthor(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	for _, id := range []string{"u1", "u2"} {
		author := createUser(t, sdb, id)
		_, err := sdb.CreatePost(ctx, &appDb.CreatePost{Author: author.AsAuthor(), Text: "by " + id})
		require.NoError(t, err)
	}

	cursor, err := NewTaggedUnionCursor(PostCursorTypeMostRecent, "u2")
	require.NoError(t, err)
	page, err := GetFeed(ctx, sdb, "", cursor, 10)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "u2", page.Posts[0].Author.Id)
}
