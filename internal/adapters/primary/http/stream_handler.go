package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/corkboard/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/corkboard/realtime-backend/internal/config"
	"github.com/corkboard/realtime-backend/internal/core/domain"
	apperrors "github.com/corkboard/realtime-backend/internal/core/errors"
	"github.com/corkboard/realtime-backend/internal/core/ports"
	"github.com/corkboard/realtime-backend/internal/infrastructure/logging"
	"github.com/corkboard/realtime-backend/internal/infrastructure/metrics"
)

// StreamHandler turns one authenticated HTTP request into a long-lived
// Server-Sent-Events stream fed from the event bus.
type StreamHandler struct {
	bus          ports.EventBus
	resolver     ports.MembershipResolver
	errorHandler *ErrorHandler
	logger       *slog.Logger

	keepalive    time.Duration
	clientBuffer int
}

// connectedFrame is the handshake frame written before any events. The
// client treats the stream as live only after receiving it.
type connectedFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Fallbacks for zero-value configs. config.Validate guards the server
// path; these keep a bare Config from arming a zero-interval ticker.
const (
	defaultKeepaliveInterval = 30 * time.Second
	defaultClientBuffer      = 64
)

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(
	bus ports.EventBus,
	resolver ports.MembershipResolver,
	errorHandler *ErrorHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *StreamHandler {
	keepalive := cfg.Realtime.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = defaultKeepaliveInterval
	}
	clientBuffer := cfg.Realtime.ClientBuffer
	if clientBuffer <= 0 {
		clientBuffer = defaultClientBuffer
	}
	return &StreamHandler{
		bus:          bus,
		resolver:     resolver,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "stream"),
		keepalive:    keepalive,
		clientBuffer: clientBuffer,
	}
}

// HandleProjectStream serves GET /projects/{projectID}/events.
//
// Admission order: authenticate, membership, per-user cap, per-project
// cap. The counters are only touched once all checks pass, so a
// rejected request never needs releasing.
func (h *StreamHandler) HandleProjectStream(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		h.errorHandler.Handle(w, r, apperrors.ErrBadRequest)
		return
	}

	isMember, err := h.resolver.IsMember(r.Context(), claims.UserID, projectID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if !isMember {
		metrics.StreamsRejected.WithLabelValues("membership").Inc()
		h.errorHandler.Handle(w, r, apperrors.ErrNotProjectMember)
		return
	}

	userID := claims.UserID.String()
	if !h.bus.CanUserConnect(userID) {
		metrics.StreamsRejected.WithLabelValues("user_limit").Inc()
		h.errorHandler.Handle(w, r, apperrors.ErrUserConnectionLimit)
		return
	}
	if !h.bus.CanProjectAcceptConnection(projectID) {
		metrics.StreamsRejected.WithLabelValues("project_limit").Inc()
		h.errorHandler.Handle(w, r, apperrors.ErrProjectConnectionLimit)
		return
	}

	release := h.bus.TrackConnection(userID, projectID)
	h.stream(w, r, domain.ProjectChannel(projectID), "project", userID, release)
}

// HandleGlobalStream serves GET /events/{channel} for the fixed global
// channels. No membership applies; only the per-user cap is enforced
// and the per-project counter is left untouched.
func (h *StreamHandler) HandleGlobalStream(w http.ResponseWriter, r *http.Request) {
	claims := mw.ClaimsFromContext(r.Context())
	if claims == nil {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	channel := chi.URLParam(r, "channel")
	if !domain.IsGlobalChannel(channel) {
		h.errorHandler.Handle(w, r, apperrors.ErrUnknownChannel)
		return
	}

	userID := claims.UserID.String()
	if !h.bus.CanUserConnect(userID) {
		metrics.StreamsRejected.WithLabelValues("user_limit").Inc()
		h.errorHandler.Handle(w, r, apperrors.ErrUserConnectionLimit)
		return
	}

	release := h.bus.TrackConnection(userID, "")
	h.stream(w, r, channel, "global", userID, release)
}

// stream subscribes to channel and pumps frames until the request
// context is cancelled. Teardown (release the connection slots, drop
// the subscription, stop the keepalive timer) runs on every exit path,
// including a panic or an abort that fires before the stream opens.
func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, channel, scope, userID string, release func()) {
	defer release()

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrStreamingUnsupported)
		return
	}

	// Request ID and user ID ride in the context, put there by the
	// middleware chain.
	logger := logging.LoggerFromContext(r.Context(), h.logger).With("channel", channel)

	// Subscriber callback runs on the emitter's goroutine; it hands the
	// serialized frame to the writer goroutine through a buffered
	// channel and drops it if the client cannot keep up. A slow client
	// must never stall the publisher.
	frames := make(chan []byte, h.clientBuffer)
	unsubscribe := h.bus.Subscribe(channel, func(ev domain.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("failed to marshal event", "event_type", ev.EventType(), "error", err)
			return
		}
		select {
		case frames <- data:
		default:
			metrics.FramesDropped.Inc()
			logger.Debug("dropping frame, client buffer full")
		}
	})
	defer unsubscribe()

	metrics.StreamsActive.WithLabelValues(scope).Inc()
	defer metrics.StreamsActive.WithLabelValues(scope).Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	// Tells nginx and friends not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	handshake, _ := json.Marshal(connectedFrame{Type: "connected", UserID: userID})
	if _, err := fmt.Fprintf(w, "data: %s\n\n", handshake); err != nil {
		return
	}
	flusher.Flush()

	logger.Info("stream opened", "scope", scope)
	defer logger.Info("stream closed", "scope", scope)

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case data := <-frames:
			// A failed write means the peer is gone; the context
			// cancellation follows shortly. Never propagate it.
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			// Comment-only frame; clients ignore it, proxies see traffic.
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
