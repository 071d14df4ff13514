package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/upper/db/v4"
)

type PostDB struct {
	sess db.Session
}

func getPostDB(sess db.Session) *PostDB {
	return &PostDB{sess}
}

func (pdb *PostDB) CreatePost(ctx context.Context, req *db2.CreatePost) (int64, error) {
	createdAt := now()
	res, err := execTx(ctx, pdb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			InsertInto("post").
			Columns("creator_id", "creator_username", "creator_avatar_url", "body", "image_url",
				"likes_count", "comments_count", "created_at", "updated_at").
			Values(req.Author.Id, req.Author.Username, req.Author.AvatarUrl, req.Text, req.ImageUrl,
				0, 0, createdAt, createdAt).
			ExecContext(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type flattenedAuthor struct {
	CreatorId        string `db:"creator_id"`
	CreatorUsername  string `db:"creator_username"`
	CreatorAvatarUrl string `db:"creator_avatar_url"`
}

func (a *flattenedAuthor) build() *model.Author {
	return &model.Author{
		Id:        a.CreatorId,
		Username:  a.CreatorUsername,
		AvatarUrl: a.CreatorAvatarUrl,
	}
}

type flattenedPost struct {
	flattenedAuthor `db:",inline"`
	Id              int64     `db:"id"`
	Body            string    `db:"body"`
	ImageUrl        string    `db:"image_url"`
	LikesCount      int       `db:"likes_count"`
	CommentsCount   int       `db:"comments_count"`
	LikedByMe       bool      `db:"liked_by_me"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var postColumns = []interface{}{
	"p.id",
	"p.creator_id",
	"p.creator_username",
	"p.creator_avatar_url",
	"p.body",
	"p.image_url",
	"p.likes_count",
	"p.comments_count",
	"p.created_at",
	"p.updated_at",
	db.Raw("l.user_id IS NOT NULL AS liked_by_me"),
}

func (pdb *PostDB) GetPostById(ctx context.Context, id int64, opts *db2.PostQueryOpts) (*model.Post, error) {
	if opts == nil {
		opts = &db2.PostQueryOpts{}
	}
	var post flattenedPost
	if err := pdb.sess.SQL().
		Select(postColumns...).
		From("post AS p").
		LeftJoin("post_like AS l").On("l.post_id = p.id AND l.user_id = ?", opts.LikeHistoryOf).
		Where("p.id = ?", id).
		IteratorContext(ctx).
		One(&post); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return buildPostFromFlattened(&post), nil
}

func (pdb *PostDB) GetPosts(ctx context.Context, query *db2.PostsListQuery) ([]*model.Post, error) {
	opts := query.PostsListQueryOpts
	if opts == nil {
		opts = &db2.PostsListQueryOpts{}
	}

	var where conditions
	if query.ByUser != "" {
		where.add("p.creator_id = ?", query.ByUser)
	}
	orderBy := []interface{}{"p.created_at DESC", "p.id DESC"}
	if paging := query.PageByLikes; paging != nil {
		orderBy = []interface{}{"p.likes_count DESC", "p.id DESC"}
		if paging.MaxLikes != nil {
			where.add("p.likes_count < ? OR (p.likes_count = ? AND p.id < ?)",
				paging.MaxLikes.Val, paging.MaxLikes.Val, paging.LastId)
		}
	} else if query.From != nil {
		where.add("p.created_at < ? OR (p.created_at = ? AND p.id < ?)",
			query.From.UTC(), query.From.UTC(), query.LastId)
	}

	selector := pdb.sess.SQL().
		Select(postColumns...).
		From("post AS p").
		LeftJoin("post_like AS l").On("l.post_id = p.id AND l.user_id = ?", opts.LikeHistoryOf)
	if !where.empty() {
		selector = selector.Where(where.where()...)
	}
	selector = selector.OrderBy(orderBy...)
	if opts.Limit > 0 {
		selector = selector.Limit(int(opts.Limit))
	}

	var flattenedPosts []flattenedPost
	if err := selector.IteratorContext(ctx).All(&flattenedPosts); err != nil {
		return nil, err
	}
	posts := make([]*model.Post, len(flattenedPosts))
	for i := range flattenedPosts {
		posts[i] = buildPostFromFlattened(&flattenedPosts[i])
	}
	return posts, nil
}

func buildPostFromFlattened(post *flattenedPost) *model.Post {
	return &model.Post{
		Id:            post.Id,
		Author:        post.flattenedAuthor.build(),
		Text:          post.Body,
		ImageUrl:      post.ImageUrl,
		LikesCount:    post.LikesCount,
		CommentsCount: post.CommentsCount,
		LikedByMe:     post.LikedByMe,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
}

// DeletePost removes the post together with its likes and comments.
func (pdb *PostDB) DeletePost(ctx context.Context, id int64) error {
	return pdb.sess.TxContext(ctx, func(sess db.Session) error {
		res, err := sess.SQL().
			DeleteFrom("post").
			Where("id = ?", id).
			ExecContext(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		for _, table := range []string{"post_like", "comment"} {
			if _, err := sess.SQL().
				DeleteFrom(table).
				Where("post_id = ?", id).
				ExecContext(ctx); err != nil {
				return err
			}
		}
		return nil
	}, nil)
}

// LikePost records the like and bumps the counter in one transaction. Liking a
// post twice leaves both untouched and reports Changed=false.
func (pdb *PostDB) LikePost(ctx context.Context, postId int64, userId string) (*model.LikeResult, error) {
	result := &model.LikeResult{PostId: postId, Liked: true}
	err := pdb.sess.TxContext(ctx, func(sess db.Session) error {
		if err := requirePost(ctx, sess, postId); err != nil {
			return err
		}
		result.Changed = false
		_, err := sess.SQL().
			InsertInto("post_like").
			Columns("post_id", "user_id", "created_at").
			Values(postId, userId, now()).
			ExecContext(ctx)
		switch {
		case err == nil:
			if _, err := sess.SQL().
				Update("post").
				Set("likes_count = likes_count + ?", 1).
				Where("id = ?", postId).
				ExecContext(ctx); err != nil {
				return err
			}
			result.Changed = true
		case db2.IsDupKeyErr(err):
		default:
			return err
		}
		result.LikesCount, err = likesCount(ctx, sess, postId)
		return err
	}, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (pdb *PostDB) UnlikePost(ctx context.Context, postId int64, userId string) (*model.LikeResult, error) {
	result := &model.LikeResult{PostId: postId, Liked: false}
	err := pdb.sess.TxContext(ctx, func(sess db.Session) error {
		if err := requirePost(ctx, sess, postId); err != nil {
			return err
		}
		res, err := sess.SQL().
			DeleteFrom("post_like").
			Where("post_id = ? AND user_id = ?", postId, userId).
			ExecContext(ctx)
		if err != nil {
			return err
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.Changed = removed == 1
		if result.Changed {
			if _, err := sess.SQL().
				Update("post").
				Set("likes_count = likes_count - ?", 1).
				Where("id = ? AND likes_count > 0", postId).
				ExecContext(ctx); err != nil {
				return err
			}
		}
		result.LikesCount, err = likesCount(ctx, sess, postId)
		return err
	}, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func requirePost(ctx context.Context, sess db.Session, postId int64) error {
	var row struct {
		Id int64 `db:"id"`
	}
	if err := sess.SQL().
		Select("id").
		From("post").
		Where("id = ?", postId).
		IteratorContext(ctx).
		One(&row); err != nil {
		if errors.Is(err, db.ErrNoMoreRows) {
			return db2.ErrNotFound
		}
		return err
	}
	return nil
}

func likesCount(ctx context.Context, sess db.Session, postId int64) (int, error) {
	var row struct {
		LikesCount int `db:"likes_count"`
	}
	if err := sess.SQL().
		Select("likes_count").
		From("post").
		Where("id = ?", postId).
		IteratorContext(ctx).
		One(&row); err != nil {
		return 0, err
	}
	return row.LikesCount, nil
}

func (pdb *PostDB) CreateComment(ctx context.Context, req *db2.CreateComment) (int64, error) {
	var commentId int64
	err := pdb.sess.TxContext(ctx, func(sess db.Session) error {
		if err := requirePost(ctx, sess, req.PostId); err != nil {
			return err
		}
		res, err := sess.SQL().
			InsertInto("comment").
			Columns("post_id", "creator_id", "creator_username", "creator_avatar_url", "body", "created_at").
			Values(req.PostId, req.Author.Id, req.Author.Username, req.Author.AvatarUrl, req.Text, now()).
			ExecContext(ctx)
		if err != nil {
			return err
		}
		commentId, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = sess.SQL().
			Update("post").
			Set("comments_count = comments_count + ?", 1).
			Where("id = ?", req.PostId).
			ExecContext(ctx)
		return err
	}, &sql.TxOptions{})
	return commentId, err
}

type flattenedComment struct {
	flattenedAuthor `db:",inline"`
	Id              int64     `db:"id"`
	PostId          int64     `db:"post_id"`
	Body            string    `db:"body"`
	CreatedAt       time.Time `db:"created_at"`
}

var commentColumns = []interface{}{
	"c.id",
	"c.post_id",
	"c.creator_id",
	"c.creator_username",
	"c.creator_avatar_url",
	"c.body",
	"c.created_at",
}

func (pdb *PostDB) GetCommentById(ctx context.Context, id int64) (*model.Comment, error) {
	var comment flattenedComment
	if err := pdb.sess.SQL().
		Select(commentColumns...).
		From("comment AS c").
		Where("c.id = ?", id).
		IteratorContext(ctx).
		One(&comment); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return buildCommentFromFlattened(&comment), nil
}

// GetComments lists a post's comments oldest first.
func (pdb *PostDB) GetComments(ctx context.Context, postId int64) ([]*model.Comment, error) {
	var flattenedComments []flattenedComment
	if err := pdb.sess.SQL().
		Select(commentColumns...).
		From("comment AS c").
		Where("c.post_id = ?", postId).
		OrderBy("c.created_at", "c.id").
		IteratorContext(ctx).
		All(&flattenedComments); err != nil {
		return nil, err
	}
	comments := make([]*model.Comment, len(flattenedComments))
	for i := range flattenedComments {
		comments[i] = buildCommentFromFlattened(&flattenedComments[i])
	}
	return comments, nil
}

func (pdb *PostDB) DeleteComment(ctx context.Context, id int64) error {
	return pdb.sess.TxContext(ctx, func(sess db.Session) error {
		var row struct {
			PostId int64 `db:"post_id"`
		}
		if err := sess.SQL().
			Select("post_id").
			From("comment").
			Where("id = ?", id).
			IteratorContext(ctx).
			One(&row); err != nil {
			if errors.Is(err, db.ErrNoMoreRows) {
				return db2.ErrNotFound
			}
			return err
		}
		if _, err := sess.SQL().
			DeleteFrom("comment").
			Where("id = ?", id).
			ExecContext(ctx); err != nil {
			return err
		}
		_, err := sess.SQL().
			Update("post").
			Set("comments_count = comments_count - ?", 1).
			Where("id = ? AND comments_count > 0", row.PostId).
			ExecContext(ctx)
		return err
	}, &sql.TxOptions{})
}

func buildCommentFromFlattened(comment *flattenedComment) *model.Comment {
	return &model.Comment{
		Id:        comment.Id,
		PostId:    comment.PostId,
		Author:    comment.flattenedAuthor.build(),
		Text:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
