package events

import (
	"log/slog"
	"sync"

	"github.com/corkboard/realtime-backend/internal/core/domain"
	"github.com/corkboard/realtime-backend/internal/core/ports"
	"github.com/corkboard/realtime-backend/internal/infrastructure/metrics"
)

// Default connection caps. A browser tab holds one stream, so the
// per-user cap bounds tabs per user and the per-project cap bounds
// concurrent viewers of one board.
const (
	DefaultMaxConnsPerUser    = 10
	DefaultMaxConnsPerProject = 100
)

// Config holds bus tunables.
type Config struct {
	MaxConnsPerUser    int
	MaxConnsPerProject int
}

// DefaultConfig returns the default bus configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnsPerUser:    DefaultMaxConnsPerUser,
		MaxConnsPerProject: DefaultMaxConnsPerProject,
	}
}

// subscription is one (channel, callback) registration. removed is
// guarded by the bus mutex; it makes unsubscribe idempotent and stops
// delivery to callbacks unsubscribed between snapshot and dispatch.
type subscription struct {
	fn      func(domain.Event)
	removed bool
}

// Bus is the process-wide broadcast point for realtime events.
//
// Channels exist implicitly: a channel is a key in the channels map
// while it has subscribers and nothing more. Events are delivered
// synchronously to the subscribers registered at Emit time, in
// registration order, with no history kept for late subscribers.
//
// One mutex serializes every map and counter mutation. Callbacks are
// invoked outside the lock so they may subscribe or unsubscribe.
type Bus struct {
	mu           sync.Mutex
	channels     map[string][]*subscription
	userConns    map[string]int
	projectConns map[string]int

	maxPerUser    int
	maxPerProject int

	logger *slog.Logger
}

// Ensure Bus implements the EventBus port.
var _ ports.EventBus = (*Bus)(nil)

// NewBus creates a new event bus. Zero or negative caps fall back to
// the defaults.
func NewBus(cfg Config, logger *slog.Logger) *Bus {
	if cfg.MaxConnsPerUser <= 0 {
		cfg.MaxConnsPerUser = DefaultMaxConnsPerUser
	}
	if cfg.MaxConnsPerProject <= 0 {
		cfg.MaxConnsPerProject = DefaultMaxConnsPerProject
	}
	return &Bus{
		channels:      make(map[string][]*subscription),
		userConns:     make(map[string]int),
		projectConns:  make(map[string]int),
		maxPerUser:    cfg.MaxConnsPerUser,
		maxPerProject: cfg.MaxConnsPerProject,
		logger:        logger.With("component", "event_bus"),
	}
}

// Emit delivers event to every current subscriber of channel. It never
// fails: zero subscribers is a no-op and a panicking subscriber is
// logged and skipped without affecting the remaining subscribers or
// the caller.
func (b *Bus) Emit(channel string, event domain.Event) {
	b.mu.Lock()
	subs := b.channels[channel]
	snapshot := make([]*subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	metrics.EventsEmitted.WithLabelValues(event.EventType().Family()).Inc()

	for _, sub := range snapshot {
		b.mu.Lock()
		removed := sub.removed
		b.mu.Unlock()
		if removed {
			continue
		}
		b.dispatch(channel, sub, event)
	}
}

// dispatch invokes one callback, isolating panics.
func (b *Bus) dispatch(channel string, sub *subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked during delivery",
				"channel", channel,
				"event_type", event.EventType(),
				"panic", r,
			)
		}
	}()
	sub.fn(event)
}

// Subscribe registers fn on channel and returns its unsubscribe
// function. Calling unsubscribe more than once is a no-op. Subscribing
// the same callback twice creates two independent registrations.
func (b *Bus) Subscribe(channel string, fn func(domain.Event)) func() {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.channels[channel] = append(b.channels[channel], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true

		subs := b.channels[channel]
		for i, s := range subs {
			if s == sub {
				// Full-slice expression keeps emit snapshots unaliased.
				b.channels[channel] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.channels[channel]) == 0 {
			delete(b.channels, channel)
		}
	}
}

// CanUserConnect reports whether userID is below the per-user cap.
func (b *Bus) CanUserConnect(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userConns[userID] < b.maxPerUser
}

// CanProjectAcceptConnection reports whether projectID is below the
// per-project cap.
func (b *Bus) CanProjectAcceptConnection(projectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projectConns[projectID] < b.maxPerProject
}

// TrackConnection increments the connection counters and returns the
// matching release function. The caller checks admission beforehand;
// TrackConnection itself never rejects. Release is safe to call more
// than once: only the first call decrements, and counters never go
// below zero. An empty projectID (global-channel streams) touches the
// per-user counter only.
func (b *Bus) TrackConnection(userID, projectID string) func() {
	b.mu.Lock()
	b.userConns[userID]++
	if projectID != "" {
		b.projectConns[projectID]++
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.release(b.userConns, userID)
			if projectID != "" {
				b.release(b.projectConns, projectID)
			}
		})
	}
}

// release decrements one counter, clamping at zero and dropping the
// map entry when it empties.
func (b *Bus) release(counts map[string]int, key string) {
	n, ok := counts[key]
	if !ok || n <= 1 {
		if !ok {
			b.logger.Warn("release without matching track", "key", key)
		}
		delete(counts, key)
		return
	}
	counts[key] = n - 1
}

// ListenerCount returns the number of subscribers on channel.
// Diagnostic only.
func (b *Bus) ListenerCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels[channel])
}

// Stats returns a snapshot of the bus for the admin stats endpoint.
func (b *Bus) Stats() ports.BusStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := 0
	for _, s := range b.channels {
		subs += len(s)
	}
	conns := 0
	for _, n := range b.userConns {
		conns += n
	}
	return ports.BusStats{
		Channels:          len(b.channels),
		Subscriptions:     subs,
		TrackedUsers:      len(b.userConns),
		TrackedProjects:   len(b.projectConns),
		ActiveConnections: conns,
	}
}
