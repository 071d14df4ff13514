package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nutriscan/nutriscan-be/db/sqldb"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sqldb.SQLDB {
	t.Helper()
	sdb, err := sqldb.OpenSQLite(filepath.Join(t.TempDir(), "app.sqlite"))
	require.NoError(t, err)
	require.NoError(t, sdb.Migrate(zap.NewNop()))
	t.Cleanup(func() { _ = sdb.Close() })
	return sdb
}

func createUser(t *testing.T, sdb *sqldb.SQLDB, id string, allergies ...string) *model.User {
	t.Helper()
	user := &model.User{
		Id:                id,
		Username:          "user-" + id,
		Email:             id + "@example.com",
		AvatarUrl:         "https://avatars.example/" + id,
		SelectedAllergies: allergies,
	}
	if user.SelectedAllergies == nil {
		user.SelectedAllergies = []string{}
	}
	require.NoError(t, sdb.CreateUser(context.Background(), user))
	return user
}

type publishedEvent struct {
	Topic string
	Type  string
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (rp *recordingPublisher) Publish(topic string, eventType string, data interface{}) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.events = append(rp.events, publishedEvent{topic, eventType, data})
}

func (rp *recordingPublisher) ofType(eventType string) []publishedEvent {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	var matched []publishedEvent
	for _, event := range rp.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type pushed struct {
	UserId string
	Title  string
	Data   map[string]string
	CtxErr error
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushed
	err    error
	// gate, when set, holds every push until it is closed
	gate chan struct{}
}

func (rp *recordingPusher) PushToUser(ctx context.Context, userId string, title string, body string, data map[string]string) error {
	if rp.gate != nil {
		<-rp.gate
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.pushes = append(rp.pushes, pushed{userId, title, data, ctx.Err()})
	return rp.err
}

func (rp *recordingPusher) all() []pushed {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return append([]pushed(nil), rp.pushes...)
}

type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: map[string][]byte{}}
}

func (mb *memoryBlobs) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.blobs[key] = data
	return "https://blobs.example/" + key, nil
}

func (mb *memoryBlobs) Exists(ctx context.Context, key string) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	_, ok := mb.blobs[key]
	return ok, nil
}

func (mb *memoryBlobs) Delete(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	delete(mb.blobs, key)
	return nil
}

// a 1x1 transparent png
const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="
