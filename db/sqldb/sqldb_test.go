package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *SQLDB {
	t.Helper()
	sdb, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	require.NoError(t, sdb.Migrate(zap.NewNop()))
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

func createUser(t *testing.T, sdb *SQLDB, id string) *model.User {
	t.Helper()
	user := &model.User{
		Id:                id,
		Username:          "user-" + id,
		Email:             id + "@example.com",
		AvatarUrl:         "https://avatars.example/" + id,
		SelectedAllergies: []string{"Milk"},
	}
	require.NoError(t, sdb.CreateUser(context.Background(), user))
	return user
}

func createPost(t *testing.T, sdb *SQLDB, author *model.User, text string) int64 {
	t.Helper()
	id, err := sdb.CreatePost(context.Background(), &db2.CreatePost{Author: author.AsAuthor(), Text: text})
	require.NoError(t, err)
	return id
}

func TestMigrateIsRepeatable(t *testing.T) {
	sdb := newTestDB(t)
	assert.NoError(t, sdb.Migrate(zap.NewNop()))
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	createUser(t, sdb, "u1")

	user, err := sdb.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-u1", user.Username)
	assert.Equal(t, []string{"Milk"}, user.SelectedAllergies)
	assert.False(t, user.CreatedAt.IsZero())

	username := "renamed"
	require.NoError(t, sdb.UpdateUser(ctx, "u1", &db2.UpdateUser{
		Username:          &username,
		SelectedAllergies: []string{"Eggs", "Soy"},
	}))
	user, err = sdb.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)
	assert.Equal(t, []string{"Eggs", "Soy"}, user.SelectedAllergies)
	assert.False(t, user.IsAdmin)

	admin := true
	require.NoError(t, sdb.UpdateUser(ctx, "u1", &db2.UpdateUser{IsAdmin: &admin}))
	user, err = sdb.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	missing, err := sdb.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = sdb.UpdateUser(ctx, "nobody", &db2.UpdateUser{Username: &username})
	assert.ErrorIs(t, err, db2.ErrNotFound)
}

func TestLikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	postId := createPost(t, sdb, author, "hello")

	res, err := sdb.LikePost(ctx, postId, "fan")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikesCount)

	res, err = sdb.LikePost(ctx, postId, "fan")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, res.LikesCount)

	post, err := sdb.GetPostById(ctx, postId, &db2.PostQueryOpts{LikeHistoryOf: "fan"})
	require.NoError(t, err)
	assert.True(t, post.LikedByMe)
	post, err = sdb.GetPostById(ctx, postId, &db2.PostQueryOpts{LikeHistoryOf: "someone-else"})
	require.NoError(t, err)
	assert.False(t, post.LikedByMe)

	res, err = sdb.UnlikePost(ctx, postId, "fan")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikesCount)

	res, err = sdb.UnlikePost(ctx, postId, "fan")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 0, res.LikesCount)

	_, err = sdb.LikePost(ctx, postId+100, "fan")
	assert.ErrorIs(t, err, db2.ErrNotFound)
}

func TestCommentsMaintainCount(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	commenter := createUser(t, sdb, "commenter")
	postId := createPost(t, sdb, author, "hello")

	firstId, err := sdb.CreateComment(ctx, &db2.CreateComment{PostId: postId, Author: commenter.AsAuthor(), Text: "first"})
	require.NoError(t, err)
	_, err = sdb.CreateComment(ctx, &db2.CreateComment{PostId: postId, Author: author.AsAuthor(), Text: "second"})
	require.NoError(t, err)

	comments, err := sdb.GetComments(ctx, postId)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "commenter", comments[0].Author.Id)

	post, err := sdb.GetPostById(ctx, postId, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, post.CommentsCount)

	require.NoError(t, sdb.DeleteComment(ctx, firstId))
	post, err = sdb.GetPostById(ctx, postId, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentsCount)

	assert.ErrorIs(t, sdb.DeleteComment(ctx, firstId), db2.ErrNotFound)
	_, err = sdb.CreateComment(ctx, &db2.CreateComment{PostId: postId + 100, Author: author.AsAuthor(), Text: "x"})
	assert.ErrorIs(t, err, db2.ErrNotFound)
}

func TestDeletePostRemovesChildren(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	postId := createPost(t, sdb, author, "hello")
	_, err := sdb.LikePost(ctx, postId, "fan")
	require.NoError(t, err)
	commentId, err := sdb.CreateComment(ctx, &db2.CreateComment{PostId: postId, Author: author.AsAuthor(), Text: "c"})
	require.NoError(t, err)

	require.NoError(t, sdb.DeletePost(ctx, postId))

	post, err := sdb.GetPostById(ctx, postId, nil)
	require.NoError(t, err)
	assert.Nil(t, post)
	comment, err := sdb.GetCommentById(ctx, commentId)
	require.NoError(t, err)
	assert.Nil(t, comment)
	assert.ErrorIs(t, sdb.DeletePost(ctx, postId), db2.ErrNotFound)
}

func TestGetPostsPagesByTime(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	other := createUser(t, sdb, "other")
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, createPost(t, sdb, author, "post"))
	}
	createPost(t, sdb, other, "not mine")

	opts := &db2.PostsListQueryOpts{Limit: 2}
	var seen []int64
	query := &db2.PostsListQuery{ByUser: "author", PostsListQueryOpts: opts}
	for {
		page, err := sdb.GetPosts(ctx, query)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, post := range page {
			seen = append(seen, post.Id)
		}
		last := page[len(page)-1]
		query = &db2.PostsListQuery{ByUser: "author", From: &last.CreatedAt, LastId: last.Id, PostsListQueryOpts: opts}
	}
	assert.Equal(t, []int64{ids[4], ids[3], ids[2], ids[1], ids[0]}, seen)
}

func TestGetPostsPagesByLikes(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	quiet := createPost(t, sdb, author, "quiet")
	popular := createPost(t, sdb, author, "popular")
	medium := createPost(t, sdb, author, "medium")
	for _, fan := range []string{"a", "b", "c"} {
		_, err := sdb.LikePost(ctx, popular, fan)
		require.NoError(t, err)
	}
	_, err := sdb.LikePost(ctx, medium, "a")
	require.NoError(t, err)

	opts := &db2.PostsListQueryOpts{Limit: 2}
	page, err := sdb.GetPosts(ctx, &db2.PostsListQuery{PageByLikes: &db2.ByLikesPaging{}, PostsListQueryOpts: opts})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, popular, page[0].Id)
	assert.Equal(t, medium, page[1].Id)

	page, err = sdb.GetPosts(ctx, &db2.PostsListQuery{
		PageByLikes: &db2.ByLikesPaging{
			MaxLikes: &db2.IntFilter{Val: int64(page[1].LikesCount)},
			LastId:   page[1].Id,
		},
		PostsListQueryOpts: opts,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, quiet, page[0].Id)
}

func TestDeleteUserRecountsOtherPosts(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)
	author := createUser(t, sdb, "author")
	leaving := createUser(t, sdb, "leaving")
	postId := createPost(t, sdb, author, "stays")
	ownPost := createPost(t, sdb, leaving, "goes")

	_, err := sdb.LikePost(ctx, postId, leaving.Id)
	require.NoError(t, err)
	_, err = sdb.LikePost(ctx, postId, "someone")
	require.NoError(t, err)
	_, err = sdb.CreateComment(ctx, &db2.CreateComment{PostId: postId, Author: leaving.AsAuthor(), Text: "bye"})
	require.NoError(t, err)

	deleted, err := sdb.DeleteUser(ctx, leaving.Id)
	require.NoError(t, err)
	assert.Equal(t, []int64{ownPost}, deleted)

	post, err := sdb.GetPostById(ctx, postId, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, post.LikesCount)
	assert.Equal(t, 0, post.CommentsCount)

	gone, err := sdb.GetPostById(ctx, ownPost, nil)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, err = sdb.DeleteUser(ctx, leaving.Id)
	assert.ErrorIs(t, err, db2.ErrNotFound)
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	product := &model.Product{
		Barcode:            "5000159484695",
		Name:               "Chocolate Bar",
		Brand:              "Cocoa Co",
		Calories:           535,
		Allergens:          []string{"Milk", "Soy"},
		Nutrients:          []model.Nutrient{{Name: "Fiber", Value: 3.4, Unit: "g"}},
		HealthAlerts:       []model.HealthAlert{{Title: "High sugar", Severity: model.SeverityWarning}},
		NutritionBreakdown: &model.NutritionBreakdown{Carbohydrates: 56, Fat: 30, Protein: 7, Sugar: 50},
		Source:             model.ProductSourceCatalog,
		Status:             model.ProductStatusApproved,
	}
	id, err := sdb.CreateProduct(ctx, product)
	require.NoError(t, err)

	found, err := sdb.GetProductByBarcode(ctx, "5000159484695")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.Id)
	assert.Equal(t, []string{"Milk", "Soy"}, found.Allergens)
	assert.Equal(t, product.Nutrients, found.Nutrients)
	assert.Equal(t, product.NutritionBreakdown, found.NutritionBreakdown)
	assert.Empty(t, found.Alternatives)

	_, err = sdb.CreateProduct(ctx, product)
	assert.True(t, db2.IsDupKeyErr(err))

	// products without a barcode do not collide
	pending := &model.Product{Name: "Homemade Jam", Brand: "Gran", Source: model.ProductSourceContribution, Status: model.ProductStatusPending, ContributorId: "u1"}
	pendingId, err := sdb.CreateProduct(ctx, pending)
	require.NoError(t, err)
	_, err = sdb.CreateProduct(ctx, &model.Product{Name: "Other", Brand: "X", Source: model.ProductSourceContribution, Status: model.ProductStatusPending})
	require.NoError(t, err)

	approved, err := sdb.GetProducts(ctx, &db2.ProductsQuery{Status: model.ProductStatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)

	require.NoError(t, sdb.SetProductStatus(ctx, pendingId, model.ProductStatusApproved))
	approved, err = sdb.GetProducts(ctx, &db2.ProductsQuery{Status: model.ProductStatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	assert.ErrorIs(t, sdb.SetProductStatus(ctx, 9999, model.ProductStatusApproved), db2.ErrNotFound)

	missing, err := sdb.GetProductByBarcode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductBarcodePerStatus(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	contribution := &model.Product{Barcode: "40000000", Name: "Oats", Brand: "Field Co", Source: model.ProductSourceContribution, Status: model.ProductStatusPending, ContributorId: "u1"}
	pendingId, err := sdb.CreateProduct(ctx, contribution)
	require.NoError(t, err)
	_, err = sdb.CreateProduct(ctx, contribution)
	assert.True(t, db2.IsDupKeyErr(err))

	found, err := sdb.GetProductByBarcode(ctx, "40000000")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pendingId, found.Id)

	approvedId, err := sdb.CreateProduct(ctx, &model.Product{Barcode: "40000000", Name: "Oats", Brand: "Mill", Source: model.ProductSourceLookup, Status: model.ProductStatusApproved})
	require.NoError(t, err)
	found, err = sdb.GetProductByBarcode(ctx, "40000000")
	require.NoError(t, err)
	assert.Equal(t, approvedId, found.Id)

	err = sdb.SetProductStatus(ctx, pendingId, model.ProductStatusApproved)
	assert.True(t, db2.IsDupKeyErr(err))
}

// A failed insert must not leave the single sqlite connection stuck in a transaction.
func TestFailedInsertReleasesConnection(t *testing.T) {
	sdb := newTestDB(t)
	createUser(t, sdb, "u1")
	validAfter := time.Now().UTC()
	require.NoError(t, sdb.CreateCredential(context.Background(), &db2.Credential{UserId: "u1", Email: "a@example.com", PasswordHash: "h", TokensValidAfter: validAfter}))

	err := sdb.CreateUser(context.Background(), &model.User{Id: "u1", Username: "again"})
	assert.True(t, db2.IsDupKeyErr(err))
	err = sdb.CreateCredential(context.Background(), &db2.Credential{UserId: "u2", Email: "a@example.com", PasswordHash: "h", TokensValidAfter: validAfter})
	assert.True(t, db2.IsDupKeyErr(err))
	_, err = sdb.CreateProduct(context.Background(), &model.Product{Barcode: "40000000", Name: "A", Status: model.ProductStatusApproved, Source: model.ProductSourceCatalog})
	require.NoError(t, err)
	_, err = sdb.CreateProduct(context.Background(), &model.Product{Barcode: "40000000", Name: "B", Status: model.ProductStatusApproved, Source: model.ProductSourceCatalog})
	assert.True(t, db2.IsDupKeyErr(err))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	user, err := sdb.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	cred, err := sdb.GetCredentialByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	createPost(t, sdb, user, "still writable")
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	old := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Microsecond)
	oldId, err := sdb.CreateNotification(ctx, &model.Notification{UserId: "u1", Type: model.NotificationScanComplete, Title: "Scan", Message: "done", CreatedAt: old})
	require.NoError(t, err)
	newId, err := sdb.CreateNotification(ctx, &model.Notification{UserId: "u1", Type: model.NotificationPostLiked, Title: "Like", Message: "liked"})
	require.NoError(t, err)
	_, err = sdb.CreateNotification(ctx, &model.Notification{UserId: "u2", Type: model.NotificationPostLiked, Title: "Like", Message: "liked"})
	require.NoError(t, err)

	list, err := sdb.GetNotificationsForUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newId, list[0].Id)
	assert.Equal(t, oldId, list[1].Id)

	unread, err := sdb.CountUnreadNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, sdb.MarkNotificationRead(ctx, "u1", oldId))
	require.NoError(t, sdb.MarkNotificationRead(ctx, "u1", oldId))
	assert.ErrorIs(t, sdb.MarkNotificationRead(ctx, "u2", oldId), db2.ErrNotFound)

	marked, err := sdb.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	purged, err := sdb.PurgeReadNotifications(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	list, err = sdb.GetNotificationsForUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestDevices(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	device, err := sdb.UpsertDevice(ctx, &model.Device{UserId: "u1", Platform: "ios", TokenHash: "abc", EndpointArn: "arn:1"})
	require.NoError(t, err)
	require.NotZero(t, device.Id)

	again, err := sdb.UpsertDevice(ctx, &model.Device{UserId: "u1", Platform: "ios", TokenHash: "abc", EndpointArn: "arn:2"})
	require.NoError(t, err)
	assert.Equal(t, device.Id, again.Id)
	assert.Equal(t, "arn:2", again.EndpointArn)

	require.NoError(t, sdb.DisableDevice(ctx, device.Id))
	devices, err := sdb.GetDevicesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, devices)

	again, err = sdb.UpsertDevice(ctx, &model.Device{UserId: "u1", Platform: "ios", TokenHash: "abc", EndpointArn: "arn:3"})
	require.NoError(t, err)
	assert.True(t, again.Enabled)
	devices, err = sdb.GetDevicesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	sdb := newTestDB(t)

	validAfter := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, sdb.CreateCredential(ctx, &db2.Credential{UserId: "u1", Email: "a@example.com", PasswordHash: "h1", TokensValidAfter: validAfter}))
	err := sdb.CreateCredential(ctx, &db2.Credential{UserId: "u2", Email: "a@example.com", PasswordHash: "h2", TokensValidAfter: validAfter})
	assert.True(t, db2.IsDupKeyErr(err))

	cred, err := sdb.GetCredentialByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "u1", cred.UserId)
	assert.True(t, validAfter.Equal(cred.TokensValidAfter))

	later := validAfter.Add(time.Hour)
	require.NoError(t, sdb.UpdateCredential(ctx, "u1", "h3", later))
	cred, err = sdb.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h3", cred.PasswordHash)
	assert.True(t, later.Equal(cred.TokensValidAfter))

	require.NoError(t, sdb.DeleteCredential(ctx, "u1"))
	cred, err = sdb.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, cred)
}
