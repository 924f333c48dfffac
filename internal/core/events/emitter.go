package events

import (
	"github.com/corkboard/realtime-backend/internal/core/domain"
	"github.com/corkboard/realtime-backend/internal/core/ports"
)

// Typed emit helpers, one per event family. Producers construct a fully
// populated event and hand it over; the helpers only pick the channels.
// The bus performs no validation of event contents.

// EmitTicketEvent publishes a ticket event on its project channel.
func EmitTicketEvent(bus ports.EventBus, e domain.TicketEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitLabelEvent publishes a label event on its project channel.
func EmitLabelEvent(bus ports.EventBus, e domain.LabelEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitSprintEvent publishes a sprint event on its project channel.
func EmitSprintEvent(bus ports.EventBus, e domain.SprintEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitCommentEvent publishes a comment event on its project channel.
func EmitCommentEvent(bus ports.EventBus, e domain.CommentEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitMemberEvent publishes a member event on its project channel and
// on the global members channel, so admin views see membership changes
// across all projects.
func EmitMemberEvent(bus ports.EventBus, e domain.MemberEvent) {
	bus.Emit(e.Channel(), e)
	bus.Emit(domain.ChannelMembers, e)
}

// EmitProjectEvent publishes a project lifecycle event on the global
// projects channel and on the project's own channel, so open boards
// learn about renames and deletions.
func EmitProjectEvent(bus ports.EventBus, e domain.ProjectEvent) {
	bus.Emit(domain.ChannelProjects, e)
	bus.Emit(domain.ProjectChannel(e.ProjectID), e)
}

// EmitUserEvent publishes a user event on the global users channel.
func EmitUserEvent(bus ports.EventBus, e domain.UserEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitBrandingEvent publishes a branding event on the global branding channel.
func EmitBrandingEvent(bus ports.EventBus, e domain.BrandingEvent) {
	bus.Emit(e.Channel(), e)
}

// EmitSettingsEvent publishes a settings event on the global settings channel.
func EmitSettingsEvent(bus ports.EventBus, e domain.SettingsEvent) {
	bus.Emit(e.Channel(), e)
}

// Publish routes any decoded event through its family helper.
// Every member of the event union must be matched here.
func Publish(bus ports.EventBus, ev domain.Event) {
	switch e := ev.(type) {
	case domain.TicketEvent:
		EmitTicketEvent(bus, e)
	case domain.LabelEvent:
		EmitLabelEvent(bus, e)
	case domain.SprintEvent:
		EmitSprintEvent(bus, e)
	case domain.CommentEvent:
		EmitCommentEvent(bus, e)
	case domain.MemberEvent:
		EmitMemberEvent(bus, e)
	case domain.ProjectEvent:
		EmitProjectEvent(bus, e)
	case domain.UserEvent:
		EmitUserEvent(bus, e)
	case domain.BrandingEvent:
		EmitBrandingEvent(bus, e)
	case domain.SettingsEvent:
		EmitSettingsEvent(bus, e)
	default:
		bus.Emit(ev.Channel(), ev)
	}
}
