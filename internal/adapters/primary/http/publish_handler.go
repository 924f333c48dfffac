package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/corkboard/realtime-backend/internal/core/domain"
	apperrors "github.com/corkboard/realtime-backend/internal/core/errors"
	"github.com/corkboard/realtime-backend/internal/core/events"
	"github.com/corkboard/realtime-backend/internal/core/ports"
)

// maxEventBytes bounds the publish request body. Events are small
// change notifications, not data transfer.
const maxEventBytes = 64 * 1024

// PublishHandler accepts events from the board application's route
// handlers and pushes them onto the bus. Producers populate the event
// fully (ids, acting user, tab id, timestamp); this handler only
// decodes and routes.
type PublishHandler struct {
	bus          ports.EventBus
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewPublishHandler creates a new publish handler.
func NewPublishHandler(bus ports.EventBus, errorHandler *ErrorHandler, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		bus:          bus,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "publish"),
	}
}

// HandlePublish serves POST /internal/events. The route requires a
// service-scoped token; scope is enforced by middleware.
func (h *PublishHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Failed to read request body"))
		return
	}

	ev, err := domain.DecodeEvent(body)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, err.Error()))
		return
	}

	events.Publish(h.bus, ev)

	h.logger.Debug("event published",
		"event_type", ev.EventType(),
		"channel", ev.Channel(),
	)

	WriteAccepted(w, "event published")
}
