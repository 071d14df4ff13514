package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errClosed = errors.New("closed")

type fakeConn struct {
	reads     chan command
	closed    chan struct{}
	closeOnce sync.Once
	block     chan struct{}

	mu      sync.Mutex
	written []Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan command), closed: make(chan struct{})}
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	select {
	case cmd := <-f.reads:
		*(v.(*command)) = cmd
		return nil
	case <-f.closed:
		return errClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-f.closed:
			return errClosed
		}
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	f.mu.Lock()
	f.written = append(f.written, event)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SetReadLimit(limit int64)                    {}
func (f *fakeConn) SetReadDeadline(t time.Time) error           { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error          { return nil }
func (f *fakeConn) SetPongHandler(h func(appData string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.written...)
}

func startClient(t *testing.T, hub *Hub, userId string) (*fakeConn, chan struct{}) {
	t.Helper()
	c := newFakeConn()
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.serve(c, userId)
	}()
	require.Eventually(t, func() bool { return hub.SubscriberCount(UserTopic(userId)) == 1 }, time.Second, 5*time.Millisecond)
	return c, done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestPublishByTopic(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c, done := startClient(t, hub, "u1")

	hub.Publish(FeedTopic, "post_created", map[string]int{"id": 1})
	require.Eventually(t, func() bool { return len(c.events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "post_created", c.events()[0].Type)
	assert.Equal(t, FeedTopic, c.events()[0].Topic)

	c.reads <- command{Action: "subscribe", Topic: PostTopic(1)}
	require.Eventually(t, func() bool { return hub.SubscriberCount(PostTopic(1)) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(PostTopic(2), "comment_created", nil)
	hub.Publish(PostTopic(1), "comment_created", nil)
	hub.Publish(UserTopic("u1"), "notification", nil)
	require.Eventually(t, func() bool { return len(c.events()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PostTopic(1), c.events()[1].Topic)
	assert.Equal(t, UserTopic("u1"), c.events()[2].Topic)

	c.reads <- command{Action: "unsubscribe", Topic: PostTopic(1)}
	require.Eventually(t, func() bool { return hub.SubscriberCount(PostTopic(1)) == 0 }, time.Second, 5*time.Millisecond)

	_ = c.Close()
	waitDone(t, done)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.SubscriberCount(FeedTopic))
}

func TestPrivateTopicsAreRefused(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c, done := startClient(t, hub, "u1")

	c.reads <- command{Action: "subscribe", Topic: UserTopic("u2")}
	c.reads <- command{Action: "subscribe", Topic: "admin"}
	// the reads above are processed in order, so this one landing means the others were handled
	c.reads <- command{Action: "subscribe", Topic: PostTopic(9)}
	require.Eventually(t, func() bool { return hub.SubscriberCount(PostTopic(9)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.SubscriberCount(UserTopic("u2")))
	assert.Equal(t, 0, hub.SubscriberCount("admin"))

	hub.Close()
	waitDone(t, done)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newFakeConn()
	c.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.serve(c, "slow")
	}()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer+2; i++ {
		hub.Publish(FeedTopic, "post_created", i)
	}
	waitDone(t, done)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestAllowedTopic(t *testing.T) {
	assert.True(t, allowedTopic(FeedTopic, ""))
	assert.True(t, allowedTopic("post:12", ""))
	assert.False(t, allowedTopic("post:", "u1"))
	assert.True(t, allowedTopic("user:u1", "u1"))
	assert.False(t, allowedTopic("user:u1", ""))
	assert.False(t, allowedTopic("unknown", "u1"))
}
