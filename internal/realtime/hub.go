package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
)

const (
	TopicOrders    = "orders"
	TopicDashboard = "dashboard"

	EventOrderCreated     = "ORDER_CREATED"
	EventOrderUpdated     = "ORDER_UPDATED"
	EventOrderPaid        = "ORDER_PAID"
	EventDashboardUpdated = "DASHBOARD_UPDATED"

	channelPrefix  = "pos:topic:"
	subscriberBuff = 16
)

// KnownTopic reports whether clients may subscribe to topic.
func KnownTopic(topic string) bool {
	return topic == TopicOrders || topic == TopicDashboard
}

type Event struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// Hub fans events out to local subscribers. With a Redis client, Publish goes
// through Redis pub/sub so every instance sharing it delivers the event;
// without one, delivery is in-process only.
type Hub struct {
	rdb *redis.Client
	// relaying is set while Run holds a live Redis subscription. Until then
	// Publish delivers locally so this instance's listeners still get events.
	relaying atomic.Bool

	minBackoff time.Duration
	maxBackoff time.Duration

	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
	now  func() time.Time
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rdb:        rdb,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		subs:       make(map[string]map[chan Event]struct{}),
		now:        time.Now,
	}
}

// Publish broadcasts payload on topic. Delivery is best effort: a slow
// subscriber misses events rather than blocking the publisher.
func (h *Hub) Publish(ctx context.Context, topic, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: encode payload: %w", err)
	}
	ev := Event{Type: eventType, Topic: topic, Payload: raw, At: h.now().UTC()}

	if h.rdb == nil || !h.relaying.Load() {
		h.deliver(ev)
		return nil
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("realtime: encode event: %w", err)
	}
	if err := h.rdb.Publish(ctx, channelPrefix+topic, msg).Err(); err != nil {
		h.deliver(ev)
		return fmt.Errorf("realtime: redis publish: %w", err)
	}
	return nil
}

// Subscribe registers a listener on topic. The returned cancel func must be
// called once the listener is done.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuff)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], ch)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run relays Redis messages to local subscribers until ctx ends. Without a
// Redis client it just waits for ctx. A lost or failed subscription is
// retried with exponential backoff.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}
	l := logging.FromContext(ctx).With("component", "realtime")

	backoff := h.minBackoff
	for {
		subscribed, err := h.relay(ctx, l)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			backoff = h.minBackoff
		}
		l.Warn("realtime_subscription_error", "error", err, "retry_in", backoff.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, h.maxBackoff)
	}
}

func (h *Hub) relay(ctx context.Context, l *slog.Logger) (bool, error) {
	ps := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return false, fmt.Errorf("realtime: redis subscribe: %w", err)
	}
	h.relaying.Store(true)
	defer h.relaying.Store(false)
	l.Info("realtime_subscribed", "pattern", channelPrefix+"*")

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return true, errors.New("realtime: redis subscription closed")
			}
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				l.Warn("realtime_decode_error", "channel", m.Channel, "error", err)
				continue
			}
			ev.Topic = strings.TrimPrefix(m.Channel, channelPrefix)
			h.deliver(ev)
		}
	}
}
