package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard/realtime-backend/internal/core/domain"
	"github.com/corkboard/realtime-backend/internal/core/events"
)

func newPublishFixture(t *testing.T) (*PublishHandler, *events.Bus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(events.DefaultConfig(), logger)
	return NewPublishHandler(bus, NewErrorHandler(logger), logger), bus
}

func postEvent(handler *PublishHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandlePublish(rec, req)
	return rec
}

func TestPublishHandler_RoutesTicketEvent(t *testing.T) {
	handler, bus := newPublishFixture(t)

	var received []domain.Event
	bus.Subscribe(domain.ProjectChannel("p1"), func(e domain.Event) {
		received = append(received, e)
	})

	rec := postEvent(handler, `{
		"type": "ticket.moved",
		"userId": "user-1",
		"tabId": "tab-1",
		"timestamp": 1756500000000,
		"projectId": "p1",
		"ticketId": "ticket-1",
		"columnId": "col-doing"
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, received, 1)
	ticket, ok := received[0].(domain.TicketEvent)
	require.True(t, ok)
	assert.Equal(t, domain.EventTicketMoved, ticket.Type)
	assert.Equal(t, "col-doing", ticket.ColumnID)
	assert.Equal(t, int64(1756500000000), ticket.Timestamp)
}

func TestPublishHandler_MemberEventReachesBothChannels(t *testing.T) {
	handler, bus := newPublishFixture(t)

	var channels []string
	for _, ch := range []string{domain.ProjectChannel("p1"), domain.ChannelMembers} {
		ch := ch
		bus.Subscribe(ch, func(domain.Event) { channels = append(channels, ch) })
	}

	rec := postEvent(handler, `{
		"type": "member.role.updated",
		"userId": "admin-1",
		"projectId": "p1",
		"memberId": "user-7",
		"role": "maintainer"
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{domain.ProjectChannel("p1"), domain.ChannelMembers}, channels)
}

func TestPublishHandler_AcceptsEventWithoutSubscribers(t *testing.T) {
	handler, _ := newPublishFixture(t)

	rec := postEvent(handler, `{
		"type": "branding.updated",
		"userId": "admin-1"
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestPublishHandler_RejectsUnknownEventType(t *testing.T) {
	handler, _ := newPublishFixture(t)

	rec := postEvent(handler, `{"type": "webhook.fired", "userId": "u1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body.Code)
}

func TestPublishHandler_RejectsMalformedBody(t *testing.T) {
	handler, _ := newPublishFixture(t)

	rec := postEvent(handler, `{"type": "ticket.moved"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishHandler_RejectsMissingType(t *testing.T) {
	handler, _ := newPublishFixture(t)

	rec := postEvent(handler, `{"userId": "u1", "projectId": "p1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
