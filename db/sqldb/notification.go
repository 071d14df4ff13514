package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/nutriscan/nutriscan-be/model"
	"github.com/upper/db/v4"
)

type NotificationDB struct {
	sess db.Session
}

func getNotificationDB(sess db.Session) *NotificationDB {
	return &NotificationDB{sess}
}

type flattenedNotification struct {
	Id        int64                  `db:"id"`
	UserId    string                 `db:"user_id"`
	Type      model.NotificationType `db:"type"`
	Title     string                 `db:"title"`
	Message   string                 `db:"message"`
	TargetId  string                 `db:"target_id"`
	IsRead    bool                   `db:"is_read"`
	CreatedAt time.Time              `db:"created_at"`
}

func (ndb *NotificationDB) CreateNotification(ctx context.Context, notification *model.Notification) (int64, error) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now()
	}
	res, err := execTx(ctx, ndb.sess, func(tx db.Session) (sql.Result, error) {
		return tx.SQL().
			InsertInto("notification").
			Columns("user_id", "type", "title", "message", "target_id", "is_read", "created_at").
			Values(notification.UserId, notification.Type, notification.Title, notification.Message,
				notification.TargetId, notification.Read, notification.CreatedAt).
			ExecContext(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetNotificationsForUser returns the newest notifications first.
func (ndb *NotificationDB) GetNotificationsForUser(ctx context.Context, userId string, limit int) ([]*model.Notification, error) {
	selector := ndb.sess.SQL().
		Select("*").
		From("notification").
		Where("user_id = ?", userId).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		selector = selector.Limit(limit)
	}
	var rows []flattenedNotification
	if err := selector.IteratorContext(ctx).All(&rows); err != nil {
		return nil, err
	}
	notifications := make([]*model.Notification, len(rows))
	for i, row := range rows {
		notifications[i] = &model.Notification{
			Id:        row.Id,
			UserId:    row.UserId,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			TargetId:  row.TargetId,
			Read:      row.IsRead,
			CreatedAt: row.CreatedAt,
		}
	}
	return notifications, nil
}

func (ndb *NotificationDB) CountUnreadNotifications(ctx context.Context, userId string) (int, error) {
	var row struct {
		Count int `db:"unread"`
	}
	if err := ndb.sess.SQL().
		Select(db.Raw("COUNT(*) AS unread")).
		From("notification").
		Where("user_id = ? AND is_read = ?", userId, false).
		IteratorContext(ctx).
		One(&row); err != nil {
		return 0, err
	}
	return row.Count, nil
}

func (ndb *NotificationDB) MarkNotificationRead(ctx context.Context, userId string, id int64) error {
	res, err := ndb.sess.SQL().
		Update("notification").
		Set("is_read = ?", true).
		Where("id = ? AND user_id = ?", id, userId).
		ExecContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (ndb *NotificationDB) MarkAllNotificationsRead(ctx context.Context, userId string) (int64, error) {
	res, err := ndb.sess.SQL().
		Update("notification").
		Set("is_read = ?", true).
		Where("user_id = ? AND is_read = ?", userId, false).
		ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeReadNotifications deletes read notifications created before the cutoff.
func (ndb *NotificationDB) PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error) {
	res, err := ndb.sess.SQL().
		DeleteFrom("notification").
		Where("is_read = ? AND created_at < ?", true, before.UTC()).
		ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
