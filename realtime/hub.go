package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	FeedTopic = "feed"

	PingInterval = 25 * time.Second
	pongWait     = PingInterval * 2
	writeWait    = 10 * time.Second
	sendBuffer   = 32
	maxMessage   = 1024
)

func PostTopic(postId int64) string {
	return fmt.Sprintf("post:%d", postId)
}

func UserTopic(userId string) string {
	return "user:" + userId
}

// Event is the envelope written to subscribers.
type Event struct {
	Topic string      `json:"topic"`
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
}

type command struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type conn interface {
	ReadJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Client struct {
	userId    string
	conn      conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans events out to websocket clients by topic. Publishing never blocks: a
// client whose buffer is full is disconnected.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	subs   map[*Client]map[string]struct{}
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		subs:   make(map[*Client]map[string]struct{}),
		log:    log,
	}
}

// Serve runs the client until its connection fails or the hub closes it. The
// client starts subscribed to the feed and its own user topic.
func (h *Hub) Serve(ws *websocket.Conn, userId string) {
	h.serve(ws, userId)
}

func (h *Hub) serve(c conn, userId string) {
	client := &Client{
		userId: userId,
		conn:   c,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.register(client)
	h.subscribe(client, FeedTopic)
	if userId != "" {
		h.subscribe(client, UserTopic(userId))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(client)
	}()
	h.readPump(client)

	h.remove(client)
	client.close()
	wg.Wait()
}

func (h *Hub) readPump(client *Client) {
	client.conn.SetReadLimit(maxMessage)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var cmd command
		if err := client.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.String("userId", client.userId), zap.Error(err))
			}
			return
		}
		if !allowedTopic(cmd.Topic, client.userId) {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			h.subscribe(client, cmd.Topic)
		case "unsubscribe":
			h.unsubscribe(client, cmd.Topic)
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.close()
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.close()
				return
			}
		case <-client.done:
			return
		}
	}
}

// allowedTopic keeps clients out of other users' private topics.
func allowedTopic(topic string, userId string) bool {
	switch {
	case topic == FeedTopic:
		return true
	case strings.HasPrefix(topic, "post:"):
		return len(topic) > len("post:")
	case strings.HasPrefix(topic, "user:"):
		return userId != "" && topic == UserTopic(userId)
	}
	return false
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.subs[client] = make(map[string]struct{})
	h.mu.Unlock()
}

func (h *Hub) subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	topics, ok := h.subs[client]
	if !ok {
		return
	}
	topics[topic] = struct{}{}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][client] = struct{}{}
}

func (h *Hub) unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[client], topic)
	h.dropFromTopic(client, topic)
}

func (h *Hub) dropFromTopic(client *Client, topic string) {
	if set := h.topics[topic]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.subs[client] {
		h.dropFromTopic(client, topic)
	}
	delete(h.subs, client)
}

// Publish sends the event to every subscriber of the topic.
func (h *Hub) Publish(topic string, eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Topic: topic, Type: eventType, Data: data})
	if err != nil {
		h.log.Error("failed to encode event", zap.String("topic", topic), zap.String("type", eventType), zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.topics[topic] {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Info("dropping slow websocket client", zap.String("userId", client.userId))
		h.remove(client)
		client.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client. Serve calls return once their pumps stop.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.subs))
	for client := range h.subs {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		client.close()
	}
}
