package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard/realtime-backend/internal/core/domain"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBus(DefaultConfig(), logger)
}

func ticketEvent(projectID string) domain.TicketEvent {
	return domain.TicketEvent{
		Envelope:  domain.NewEnvelope(domain.EventTicketMoved, "user-1", "tab-1"),
		ProjectID: projectID,
		TicketID:  "ticket-1",
		ColumnID:  "col-done",
	}
}

func TestBus_EmitDeliversToSubscribers(t *testing.T) {
	bus := newTestBus(t)

	var received []domain.Event
	bus.Subscribe("project:p1", func(e domain.Event) {
		received = append(received, e)
	})

	ev := ticketEvent("p1")
	bus.Emit("project:p1", ev)

	require.Len(t, received, 1)
	assert.Equal(t, domain.EventTicketMoved, received[0].EventType())
}

func TestBus_EmitIsolatesChannels(t *testing.T) {
	bus := newTestBus(t)

	var p1Count, p2Count int
	bus.Subscribe("project:p1", func(domain.Event) { p1Count++ })
	bus.Subscribe("project:p2", func(domain.Event) { p2Count++ })

	bus.Emit("project:p1", ticketEvent("p1"))
	bus.Emit("project:p1", ticketEvent("p1"))

	assert.Equal(t, 2, p1Count)
	assert.Equal(t, 0, p2Count)
}

func TestBus_EmitWithoutSubscribersIsNoOp(t *testing.T) {
	bus := newTestBus(t)

	assert.NotPanics(t, func() {
		bus.Emit("project:empty", ticketEvent("empty"))
	})
	assert.Equal(t, 0, bus.ListenerCount("project:empty"))
}

func TestBus_DeliveryFollowsRegistrationOrder(t *testing.T) {
	bus := newTestBus(t)

	var order []int
	for i := 1; i <= 5; i++ {
		i := i
		bus.Subscribe("project:p1", func(domain.Event) {
			order = append(order, i)
		})
	}

	bus.Emit("project:p1", ticketEvent("p1"))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestBus_SameCallbackSubscribedTwiceIsDeliveredTwice(t *testing.T) {
	bus := newTestBus(t)

	count := 0
	fn := func(domain.Event) { count++ }

	unsubA := bus.Subscribe("project:p1", fn)
	unsubB := bus.Subscribe("project:p1", fn)

	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 2, count)

	// Removing one registration must leave the other intact.
	unsubA()
	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 3, count)

	unsubB()
	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 3, count)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := newTestBus(t)

	count := 0
	unsubA := bus.Subscribe("project:p1", func(domain.Event) { count++ })
	bus.Subscribe("project:p1", func(domain.Event) { count++ })

	unsubA()
	unsubA()
	unsubA()

	// The double calls must not have removed the second subscriber.
	assert.Equal(t, 1, bus.ListenerCount("project:p1"))

	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 1, count)
}

func TestBus_UnsubscribeDuringEmitSuppressesDelivery(t *testing.T) {
	bus := newTestBus(t)

	var unsubSecond func()
	var secondCalled bool

	// The first subscriber removes the second mid-delivery; the
	// second must not receive the event that is in flight.
	bus.Subscribe("project:p1", func(domain.Event) {
		unsubSecond()
	})
	unsubSecond = bus.Subscribe("project:p1", func(domain.Event) {
		secondCalled = true
	})

	bus.Emit("project:p1", ticketEvent("p1"))

	assert.False(t, secondCalled)
	assert.Equal(t, 1, bus.ListenerCount("project:p1"))
}

func TestBus_SubscribeDuringEmitDoesNotReceiveInFlightEvent(t *testing.T) {
	bus := newTestBus(t)

	lateCount := 0
	bus.Subscribe("project:p1", func(domain.Event) {
		bus.Subscribe("project:p1", func(domain.Event) { lateCount++ })
	})

	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 0, lateCount)

	// The next emit reaches the late subscriber.
	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 1, lateCount)
}

func TestBus_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := newTestBus(t)

	var before, after bool
	bus.Subscribe("project:p1", func(domain.Event) { before = true })
	bus.Subscribe("project:p1", func(domain.Event) { panic("subscriber bug") })
	bus.Subscribe("project:p1", func(domain.Event) { after = true })

	assert.NotPanics(t, func() {
		bus.Emit("project:p1", ticketEvent("p1"))
	})
	assert.True(t, before)
	assert.True(t, after)

	// The panicking subscriber stays registered and keeps failing in
	// isolation on subsequent emits.
	assert.Equal(t, 3, bus.ListenerCount("project:p1"))
	assert.NotPanics(t, func() {
		bus.Emit("project:p1", ticketEvent("p1"))
	})
}

func TestBus_ChannelLifecycleIsImplicit(t *testing.T) {
	bus := newTestBus(t)

	unsubA := bus.Subscribe("project:p1", func(domain.Event) {})
	unsubB := bus.Subscribe("project:p1", func(domain.Event) {})

	assert.Equal(t, 2, bus.ListenerCount("project:p1"))
	assert.Equal(t, 1, bus.Stats().Channels)

	unsubA()
	unsubB()

	assert.Equal(t, 0, bus.ListenerCount("project:p1"))
	assert.Equal(t, 0, bus.Stats().Channels)

	// Re-subscribing recreates the channel with no memory of the past.
	count := 0
	bus.Subscribe("project:p1", func(domain.Event) { count++ })
	bus.Emit("project:p1", ticketEvent("p1"))
	assert.Equal(t, 1, count)
}

func TestBus_CanUserConnectEnforcesCap(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(Config{MaxConnsPerUser: 2, MaxConnsPerProject: 100}, logger)

	assert.True(t, bus.CanUserConnect("user-1"))

	releaseA := bus.TrackConnection("user-1", "p1")
	assert.True(t, bus.CanUserConnect("user-1"))

	releaseB := bus.TrackConnection("user-1", "p1")
	assert.False(t, bus.CanUserConnect("user-1"))

	// Another user is unaffected.
	assert.True(t, bus.CanUserConnect("user-2"))

	releaseA()
	assert.True(t, bus.CanUserConnect("user-1"))
	releaseB()
}

func TestBus_CanProjectAcceptConnectionEnforcesCap(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewBus(Config{MaxConnsPerUser: 10, MaxConnsPerProject: 3}, logger)

	var releases []func()
	for i := 0; i < 3; i++ {
		releases = append(releases, bus.TrackConnection("user-1", "p1"))
	}

	assert.False(t, bus.CanProjectAcceptConnection("p1"))
	assert.True(t, bus.CanProjectAcceptConnection("p2"))

	releases[0]()
	assert.True(t, bus.CanProjectAcceptConnection("p1"))

	for _, r := range releases[1:] {
		r()
	}
}

func TestBus_ReleaseIsExactlyOnce(t *testing.T) {
	bus := newTestBus(t)

	releaseA := bus.TrackConnection("user-1", "p1")
	releaseB := bus.TrackConnection("user-1", "p1")

	stats := bus.Stats()
	assert.Equal(t, 2, stats.ActiveConnections)

	// Calling one release repeatedly must decrement only once.
	releaseA()
	releaseA()
	releaseA()

	stats = bus.Stats()
	assert.Equal(t, 1, stats.ActiveConnections)

	releaseB()
	stats = bus.Stats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Equal(t, 0, stats.TrackedUsers)
	assert.Equal(t, 0, stats.TrackedProjects)
}

func TestBus_GlobalStreamTracksUserOnly(t *testing.T) {
	bus := newTestBus(t)

	release := bus.TrackConnection("user-1", "")

	stats := bus.Stats()
	assert.Equal(t, 1, stats.TrackedUsers)
	assert.Equal(t, 0, stats.TrackedProjects)

	release()
	assert.Equal(t, 0, bus.Stats().TrackedUsers)
}

func TestBus_ConcurrentTrackAndRelease(t *testing.T) {
	bus := newTestBus(t)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release := bus.TrackConnection("user-1", "p1")
			release()
			release()
		}()
	}
	wg.Wait()

	stats := bus.Stats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Equal(t, 0, stats.TrackedUsers)
	assert.Equal(t, 0, stats.TrackedProjects)
}

func TestBus_ConcurrentEmitAndSubscribe(t *testing.T) {
	bus := newTestBus(t)

	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe("project:p1", func(domain.Event) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			bus.Emit("project:p1", ticketEvent("p1"))
			unsub()
		}()
	}
	wg.Wait()

	// Each goroutine's own subscriber sees at least its own emit.
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, total, 20)
	assert.Equal(t, 0, bus.ListenerCount("project:p1"))
}

// Two browser tabs on the same board each see the other's moves.
func TestBus_TwoTabsSameBoard(t *testing.T) {
	bus := newTestBus(t)

	var tabA, tabB []domain.Event
	channel := domain.ProjectChannel("p1")

	unsubA := bus.Subscribe(channel, func(e domain.Event) { tabA = append(tabA, e) })
	unsubB := bus.Subscribe(channel, func(e domain.Event) { tabB = append(tabB, e) })

	bus.Emit(channel, ticketEvent("p1"))

	require.Len(t, tabA, 1)
	require.Len(t, tabB, 1)

	unsubA()
	bus.Emit(channel, ticketEvent("p1"))

	assert.Len(t, tabA, 1)
	assert.Len(t, tabB, 2)
	unsubB()
}

func TestBus_StatsSnapshot(t *testing.T) {
	bus := newTestBus(t)

	bus.Subscribe("project:p1", func(domain.Event) {})
	bus.Subscribe("project:p1", func(domain.Event) {})
	bus.Subscribe(domain.ChannelUsers, func(domain.Event) {})

	releaseA := bus.TrackConnection("user-1", "p1")
	releaseB := bus.TrackConnection("user-2", "")

	stats := bus.Stats()
	assert.Equal(t, 2, stats.Channels)
	assert.Equal(t, 3, stats.Subscriptions)
	assert.Equal(t, 2, stats.TrackedUsers)
	assert.Equal(t, 1, stats.TrackedProjects)
	assert.Equal(t, 2, stats.ActiveConnections)

	releaseA()
	releaseB()
}
