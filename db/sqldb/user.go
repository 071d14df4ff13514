package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/upper/db/v4"
)

type UserDB struct {
	sess db.Session
}

func getUserDB(sess db.Session) *UserDB {
	return &UserDB{sess}
}

type flattenedUser struct {
	Id                    string    `db:"id"`
	Username              string    `db:"username"`
	Email                 string    `db:"email"`
	AvatarId              string    `db:"avatar_id"`
	AvatarUrl             string    `db:"avatar_url"`
	SelectedAllergiesJSON string    `db:"selected_allergies"`
	Country               string    `db:"country"`
	CountryCode           string    `db:"country_code"`
	IsAdmin               bool      `db:"is_admin"`
	CreatedAt             time.Time `db:"created_at"`
}

func (udb *UserDB) CreateUser(ctx context.Context, user *model.User) error {
	allergies, err := marshalList(user.SelectedAllergies)
	if err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	_, err = execTx(ctx, udb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			InsertInto("person").
			Columns("id", "username", "email", "avatar_id", "avatar_url", "selected_allergies",
				"country", "country_code", "is_admin", "created_at").
			Values(user.Id, user.Username, user.Email, user.AvatarId, user.AvatarUrl, allergies,
				user.Country, user.CountryCode, user.IsAdmin, user.CreatedAt).
			ExecContext(ctx)
	})
	return err
}

func (udb *UserDB) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user flattenedUser
	if err := udb.sess.SQL().
		Select("*").
		From("person").
		Where("id = ?", id).
		IteratorContext(ctx).
		One(&user); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return buildUserFromFlattened(&user)
}

func (udb *UserDB) UpdateUser(ctx context.Context, id string, req *db2.UpdateUser) error {
	if req.IsEmpty() {
		return nil
	}
	var changes assignments
	if req.Username != nil {
		changes.add("username", *req.Username)
	}
	if req.AvatarId != nil {
		changes.add("avatar_id", *req.AvatarId)
	}
	if req.AvatarUrl != nil {
		changes.add("avatar_url", *req.AvatarUrl)
	}
	if req.SelectedAllergies != nil {
		allergies, err := marshalList(req.SelectedAllergies)
		if err != nil {
			return err
		}
		changes.add("selected_allergies", allergies)
	}
	if req.Country != nil {
		changes.add("country", *req.Country)
	}
	if req.CountryCode != nil {
		changes.add("country_code", *req.CountryCode)
	}
	if req.IsAdmin != nil {
		changes.add("is_admin", *req.IsAdmin)
	}

	res, err := udb.sess.SQL().
		Update("person").
		Set(changes.set()...).
		Where("id = ?", id).
		ExecContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteUser removes the profile and everything the user authored. Counters on
// other users' posts are recomputed for the likes and comments that go away.
func (udb *UserDB) DeleteUser(ctx context.Context, id string) ([]int64, error) {
	var authored []int64
	err := udb.sess.TxContext(ctx, func(sess db.Session) error {
		authored = nil
		res, err := sess.SQL().
			DeleteFrom("person").
			Where("id = ?", id).
			ExecContext(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		var own []struct {
			Id int64 `db:"id"`
		}
		if err := sess.SQL().
			Select("id").
			From("post").
			Where("creator_id = ?", id).
			OrderBy("id").
			IteratorContext(ctx).
			All(&own); err != nil {
			return err
		}
		for _, row := range own {
			authored = append(authored, row.Id)
		}

		var touched []struct {
			PostId int64 `db:"post_id"`
		}
		if err := sess.SQL().
			Select("post_id").
			From("post_like").
			Where("user_id = ?", id).
			IteratorContext(ctx).
			All(&touched); err != nil {
			return err
		}
		var commented []struct {
			PostId int64 `db:"post_id"`
		}
		if err := sess.SQL().
			Select("post_id").
			From("comment").
			Where("creator_id = ?", id).
			GroupBy("post_id").
			IteratorContext(ctx).
			All(&commented); err != nil {
			return err
		}

		// content on the user's own posts goes with the posts
		for _, stmt := range []struct {
			table string
			where string
		}{
			{"post_like", "post_id IN (SELECT id FROM post WHERE creator_id = ?)"},
			{"comment", "post_id IN (SELECT id FROM post WHERE creator_id = ?)"},
			{"post", "creator_id = ?"},
			{"post_like", "user_id = ?"},
			{"comment", "creator_id = ?"},
			{"notification", "user_id = ?"},
			{"device", "user_id = ?"},
		} {
			if _, err := sess.SQL().
				DeleteFrom(stmt.table).
				Where(stmt.where, id).
				ExecContext(ctx); err != nil {
				return err
			}
		}

		postIds := make([]int64, 0, len(touched)+len(commented))
		for _, row := range touched {
			postIds = append(postIds, row.PostId)
		}
		for _, row := range commented {
			postIds = append(postIds, row.PostId)
		}
		return recountPosts(ctx, sess, postIds)
	}, nil)
	if err != nil {
		return nil, err
	}
	return authored, nil
}

// recountPosts rebuilds the cached counters of the given posts from the like and comment rows.
func recountPosts(ctx context.Context, sess db.Session, postIds []int64) error {
	seen := make(map[int64]bool, len(postIds))
	for _, postId := range postIds {
		if seen[postId] {
			continue
		}
		seen[postId] = true
		if _, err := sess.SQL().ExecContext(ctx, `
UPDATE post SET
	likes_count = (SELECT COUNT(*) FROM post_like WHERE post_like.post_id = post.id),
	comments_count = (SELECT COUNT(*) FROM comment WHERE comment.post_id = post.id)
WHERE id = ?`, postId); err != nil {
			return err
		}
	}
	return nil
}

func buildUserFromFlattened(user *flattenedUser) (*model.User, error) {
	allergies, err := unmarshalList(user.SelectedAllergiesJSON)
	if err != nil {
		return nil, err
	}
	return &model.User{
		Id:                user.Id,
		Username:          user.Username,
		Email:             user.Email,
		AvatarId:          user.AvatarId,
		AvatarUrl:         user.AvatarUrl,
		SelectedAllergies: allergies,
		Country:           user.Country,
		CountryCode:       user.CountryCode,
		IsAdmin:           user.IsAdmin,
		CreatedAt:         user.CreatedAt,
	}, nil
}

func marshalList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	out, err := json.Marshal(list)
	return string(out), err
}

func unmarshalList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}
