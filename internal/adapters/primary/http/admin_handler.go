package http

import (
	"log/slog"
	"net/http"

	"github.com/corkboard/realtime-backend/internal/core/domain"
	"github.com/corkboard/realtime-backend/internal/core/ports"
)

// AdminHandler exposes bus diagnostics for operators. Routes are
// service-scoped.
type AdminHandler struct {
	bus    ports.EventBus
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(bus ports.EventBus, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		bus:    bus,
		logger: logger.With("handler", "admin"),
	}
}

// StatsResponse is the payload of the stats endpoint.
type StatsResponse struct {
	Bus            ports.BusStats `json:"bus"`
	GlobalChannels map[string]int `json:"globalChannels"`
}

// HandleStats serves GET /admin/stats.
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	globals := map[string]int{
		domain.ChannelProjects: h.bus.ListenerCount(domain.ChannelProjects),
		domain.ChannelUsers:    h.bus.ListenerCount(domain.ChannelUsers),
		domain.ChannelMembers:  h.bus.ListenerCount(domain.ChannelMembers),
		domain.ChannelBranding: h.bus.ListenerCount(domain.ChannelBranding),
		domain.ChannelSettings: h.bus.ListenerCount(domain.ChannelSettings),
	}

	WriteSuccess(w, StatsResponse{
		Bus:            h.bus.Stats(),
		GlobalChannels: globals,
	})
}
