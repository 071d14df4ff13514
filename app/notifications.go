package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	appDb "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/realtime"
	"go.uber.org/zap"
)

const (
	EventNotification = "notification"

	notificationListLimit = 100

	pushTimeout = 15 * time.Second
)

// Publisher fans realtime events out to subscribers of a topic.
type Publisher interface {
	Publish(topic string, eventType string, data interface{})
}

// Pusher delivers a notification to the user's registered devices.
type Pusher interface {
	PushToUser(ctx context.Context, userId string, title string, body string, data map[string]string) error
}

type Notifier struct {
	db      appDb.NotificationDatabase
	events  Publisher
	push    Pusher
	pushing sync.WaitGroup
	now     func() time.Time
	log     *zap.Logger
}

// NewNotifier builds a notifier. push may be nil when push delivery is disabled.
func NewNotifier(db appDb.NotificationDatabase, events Publisher, push Pusher, log *zap.Logger) *Notifier {
	return &Notifier{
		db:     db,
		events: events,
		push:   push,
		now:    time.Now,
		log:    log,
	}
}

type NewNotification struct {
	Type     model.NotificationType
	Title    string
	Message  string
	TargetId string
}

// Notify stores the notification and then delivers it over the websocket and push.
// Push runs in the background and outlives the caller's context. Delivery failures
// are logged; only a failed insert is returned.
func (n *Notifier) Notify(ctx context.Context, userId string, req *NewNotification) (*model.Notification, error) {
	notification := &model.Notification{
		UserId:    userId,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		TargetId:  req.TargetId,
		CreatedAt: n.now().UTC(),
	}
	id, err := n.db.CreateNotification(ctx, notification)
	if err != nil {
		return nil, err
	}
	notification.Id = id

	n.events.Publish(realtime.UserTopic(userId), EventNotification, notification)

	if n.push != nil {
		data := map[string]string{
			"notificationId": strconv.FormatInt(id, 10),
			"type":           string(req.Type),
		}
		if req.TargetId != "" {
			data["targetId"] = req.TargetId
		}
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		n.pushing.Add(1)
		go func() {
			defer n.pushing.Done()
			defer cancel()
			if err := n.push.PushToUser(pushCtx, userId, req.Title, req.Message, data); err != nil {
				n.log.Warn("push delivery failed",
					zap.String("userId", userId),
					zap.Int64("notificationId", id),
					zap.Error(err))
			}
		}()
	}
	return notification, nil
}

// Wait blocks until the push deliveries in flight are done.
func (n *Notifier) Wait() {
	n.pushing.Wait()
}

// notifyQuietly is Notify for side effects of another action, which must not fail
// because of it.
func (n *Notifier) notifyQuietly(ctx context.Context, userId string, req *NewNotification) {
	if _, err := n.Notify(ctx, userId, req); err != nil {
		n.log.Error("failed to store notification",
			zap.String("userId", userId),
			zap.String("type", string(req.Type)),
			zap.Error(err))
	}
}

// List returns the user's notifications grouped into Today, Yesterday and Earlier
// as seen in loc. Empty groups are left out.
func (n *Notifier) List(ctx context.Context, userId string, loc *time.Location) ([]*model.NotificationSection, error) {
	notifications, err := n.db.GetNotificationsForUser(ctx, userId, notificationListLimit)
	if err != nil {
		return nil, err
	}
	return groupByDay(notifications, n.now(), loc), nil
}

func groupByDay(notifications []*model.Notification, now time.Time, loc *time.Location) []*model.NotificationSection {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := now.Format(time.DateOnly)
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)

	sections := []*model.NotificationSection{
		{Title: "Today"},
		{Title: "Yesterday"},
		{Title: "Earlier"},
	}
	for _, notification := range notifications {
		switch notification.CreatedAt.In(loc).Format(time.DateOnly) {
		case today:
			sections[0].Data = append(sections[0].Data, notification)
		case yesterday:
			sections[1].Data = append(sections[1].Data, notification)
		default:
			sections[2].Data = append(sections[2].Data, notification)
		}
	}

	nonEmpty := []*model.NotificationSection{}
	for _, section := range sections {
		if len(section.Data) > 0 {
			nonEmpty = append(nonEmpty, section)
		}
	}
	return nonEmpty
}

func (n *Notifier) MarkRead(ctx context.Context, userId string, id int64) error {
	return n.db.MarkNotificationRead(ctx, userId, id)
}

func (n *Notifier) MarkAllRead(ctx context.Context, userId string) (int64, error) {
	return n.db.MarkAllNotificationsRead(ctx, userId)
}

func (n *Notifier) UnreadCount(ctx context.Context, userId string) (int, error) {
	return n.db.CountUnreadNotifications(ctx, userId)
}

// Purge deletes read notifications older than retention.
func (n *Notifier) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return n.db.PurgeReadNotifications(ctx, n.now().Add(-retention).UTC())
}
