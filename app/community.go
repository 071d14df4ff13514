package app

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/realtime"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
	"go.uber.org/zap"
)

const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostLikes      = "post_likes"
	EventPostComments   = "post_comments"
	EventCommentCreated = "comment_created"
	EventCommentDeleted = "comment_deleted"

	MaxPostLength    = 2000
	MaxCommentLength = 500
	previewLength    = 80
)

type Community struct {
	posts    appDb.PostDatabase
	blobs    services.BlobStore
	events   Publisher
	notifier *Notifier
	pageSize int16
	log      *zap.Logger
}

// NewCommunity builds the community service. blobs may be nil, in which case posts
// with images are rejected.
func NewCommunity(posts appDb.PostDatabase, blobs services.BlobStore, events Publisher, notifier *Notifier, pageSize int16, log *zap.Logger) *Community {
	return &Community{
		posts:    posts,
		blobs:    blobs,
		events:   events,
		notifier: notifier,
		pageSize: pageSize,
		log:      log,
	}
}

type CreatePostRequest struct {
	Text string `json:"text"`
	// Image is a base64 data url.
	Image string `json:"image"`
}

// CreatePost stores the post with a snapshot of the author's current name and avatar.
func (cm *Community) CreatePost(ctx context.Context, author *model.User, req *CreatePostRequest) (*model.Post, error) {
	text := util.CleanText(req.Text)
	if text == "" && req.Image == "" {
		return nil, invalidInput("post text is required")
	}
	if utf8.RuneCountInString(text) > MaxPostLength {
		return nil, invalidInput("post text is longer than %d characters", MaxPostLength)
	}

	imageUrl := ""
	if req.Image != "" {
		var err error
		imageUrl, err = services.UploadDataURL(ctx, cm.blobs, "posts/"+author.Id, req.Image)
		if err != nil {
			return nil, err
		}
	}

	postId, err := cm.posts.CreatePost(ctx, &appDb.CreatePost{
		Author:   author.AsAuthor(),
		Text:     text,
		ImageUrl: imageUrl,
	})
	if err != nil {
		return nil, err
	}
	post, err := cm.posts.GetPostById(ctx, postId, &appDb.PostQueryOpts{LikeHistoryOf: author.Id})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d missing after insert", postId)
	}
	cm.events.Publish(realtime.FeedTopic, EventPostCreated, post)
	return post, nil
}

func (cm *Community) GetPost(ctx context.Context, id int64, viewerId string) (*model.Post, error) {
	post, err := cm.posts.GetPostById(ctx, id, &appDb.PostQueryOpts{LikeHistoryOf: viewerId})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, appDb.ErrNotFound
	}
	return post, nil
}

func (cm *Community) DeletePost(ctx context.Context, user *model.User, id int64) error {
	post, err := cm.GetPost(ctx, id, "")
	if err != nil {
		return err
	}
	if !post.CanDelete(user) {
		return ErrForbidden
	}
	if err := cm.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	publishPostDeleted(cm.events, id)
	return nil
}

func publishPostDeleted(events Publisher, id int64) {
	deleted := map[string]int64{"postId": id}
	events.Publish(realtime.FeedTopic, EventPostDeleted, deleted)
	events.Publish(realtime.PostTopic(id), EventPostDeleted, deleted)
}

// Feed returns a page of posts. A nil cursor starts a most recent feed.
func (cm *Community) Feed(ctx context.Context, viewerId string, cursor *TaggedUnionCursor) (*FeedPage, error) {
	return GetFeed(ctx, cm.posts, viewerId, cursor, cm.pageSize)
}

type postCounters struct {
	PostId        int64 `json:"postId"`
	LikesCount    int   `json:"likesCount"`
	CommentsCount *int  `json:"commentsCount,omitempty"`
}

func (cm *Community) LikePost(ctx context.Context, user *model.User, postId int64) (*model.LikeResult, error) {
	result, err := cm.posts.LikePost(ctx, postId, user.Id)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		cm.publishLikes(result)
		post, err := cm.GetPost(ctx, postId, "")
		if err != nil {
			return nil, err
		}
		if post.Author.Id != user.Id {
			cm.notifier.notifyQuietly(ctx, post.Author.Id, &NewNotification{
				Type:     model.NotificationPostLiked,
				Title:    "New like on your post",
				Message:  fmt.Sprintf("%s liked your post.", user.Username),
				TargetId: strconv.FormatInt(postId, 10),
			})
		}
	}
	return result, nil
}

func (cm *Community) UnlikePost(ctx context.Context, user *model.User, postId int64) (*model.LikeResult, error) {
	result, err := cm.posts.UnlikePost(ctx, postId, user.Id)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		cm.publishLikes(result)
	}
	return result, nil
}

func (cm *Community) publishLikes(result *model.LikeResult) {
	counters := &postCounters{PostId: result.PostId, LikesCount: result.LikesCount}
	cm.events.Publish(realtime.FeedTopic, EventPostLikes, counters)
	cm.events.Publish(realtime.PostTopic(result.PostId), EventPostLikes, counters)
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

func (cm *Community) CreateComment(ctx context.Context, author *model.User, postId int64, req *CreateCommentRequest) (*model.Comment, error) {
	text := util.CleanText(req.Text)
	if text == "" {
		return nil, invalidInput("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, invalidInput("comment is longer than %d characters", MaxCommentLength)
	}

	commentId, err := cm.posts.CreateComment(ctx, &appDb.CreateComment{
		PostId: postId,
		Author: author.AsAuthor(),
		Text:   text,
	})
	if err != nil {
		return nil, err
	}
	comment, err := cm.posts.GetCommentById(ctx, commentId)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, fmt.Errorf("comment %d missing after insert", commentId)
	}
	cm.events.Publish(realtime.PostTopic(postId), EventCommentCreated, comment)

	post, err := cm.GetPost(ctx, postId, "")
	if err != nil {
		return nil, err
	}
	cm.publishComments(post)
	if post.Author.Id != author.Id {
		cm.notifier.notifyQuietly(ctx, post.Author.Id, &NewNotification{
			Type:     model.NotificationPostCommented,
			Title:    "New comment on your post",
			Message:  fmt.Sprintf("%s commented: %s", author.Username, preview(text)),
			TargetId: strconv.FormatInt(postId, 10),
		})
	}
	return comment, nil
}

// GetComments lists the comments of a post oldest first.
func (cm *Community) GetComments(ctx context.Context, postId int64) ([]*model.Comment, error) {
	if _, err := cm.GetPost(ctx, postId, ""); err != nil {
		return nil, err
	}
	comments, err := cm.posts.GetComments(ctx, postId)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*model.Comment{}
	}
	return comments, nil
}

func (cm *Community) DeleteComment(ctx context.Context, user *model.User, postId int64, commentId int64) error {
	comment, err := cm.posts.GetCommentById(ctx, commentId)
	if err != nil {
		return err
	}
	if comment == nil || comment.PostId != postId {
		return appDb.ErrNotFound
	}
	if !comment.CanDelete(user) {
		return ErrForbidden
	}
	if err := cm.posts.DeleteComment(ctx, commentId); err != nil {
		return err
	}
	cm.events.Publish(realtime.PostTopic(postId), EventCommentDeleted, map[string]int64{
		"postId":    postId,
		"commentId": commentId,
	})
	post, err := cm.GetPost(ctx, postId, "")
	if err != nil {
		return err
	}
	cm.publishComments(post)
	return nil
}

func (cm *Community) publishComments(post *model.Post) {
	commentsCount := post.CommentsCount
	counters := &postCounters{PostId: post.Id, LikesCount: post.LikesCount, CommentsCount: &commentsCount}
	cm.events.Publish(realtime.FeedTopic, EventPostComments, counters)
	cm.events.Publish(realtime.PostTopic(post.Id), EventPostComments, counters)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}
