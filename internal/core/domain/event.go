package domain

import (
	"time"
)

// EventType is the discriminant of the realtime event union.
// Types are dot-separated: the prefix before the first dot is the
// event family and decides which concrete struct carries the event.
type EventType string

const (
	EventTicketCreated EventType = "ticket.created"
	EventTicketUpdated EventType = "ticket.updated"
	EventTicketMoved   EventType = "ticket.moved"
	EventTicketDeleted EventType = "ticket.deleted"

	EventLabelCreated EventType = "label.created"
	EventLabelUpdated EventType = "label.updated"
	EventLabelDeleted EventType = "label.deleted"

	EventSprintCreated   EventType = "sprint.created"
	EventSprintStarted   EventType = "sprint.started"
	EventSprintCompleted EventType = "sprint.completed"
	EventSprintDeleted   EventType = "sprint.deleted"

	EventCommentCreated EventType = "comment.created"
	EventCommentUpdated EventType = "comment.updated"
	EventCommentDeleted EventType = "comment.deleted"

	EventMemberAdded       EventType = "member.added"
	EventMemberRemoved     EventType = "member.removed"
	EventMemberRoleUpdated EventType = "member.role.updated"

	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"

	EventUserUpdated     EventType = "user.updated"
	EventBrandingUpdated EventType = "branding.updated"
	EventSettingsUpdated EventType = "settings.updated"
)

// Family returns the event family, e.g. "ticket" for "ticket.moved".
func (t EventType) Family() string {
	for i := 0; i < len(t); i++ {
		if t[i] == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event is one immutable domain change flowing through the bus.
// Delivery is fire-and-forget: no persistence, no retry, at most once.
type Event interface {
	EventType() EventType
	// Channel is the primary bus channel the event is published on.
	Channel() string
}

// Envelope carries the fields common to every event.
//
// TabID identifies the browser tab whose action produced the event;
// clients use it to skip the echo of their own optimistic updates.
// Timestamp is milliseconds since the Unix epoch.
type Envelope struct {
	Type      EventType      `json:"type"`
	UserID    string         `json:"userId"`
	TabID     string         `json:"tabId,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Changes   map[string]any `json:"changes,omitempty"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(t EventType, userID, tabID string) Envelope {
	return Envelope{
		Type:      t,
		UserID:    userID,
		TabID:     tabID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// EventType implements Event.
func (e Envelope) EventType() EventType { return e.Type }

// TicketEvent covers ticket.* events. ColumnID and SprintID are set
// when relevant to the change (a move carries the destination column).
type TicketEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
	TicketID  string `json:"ticketId"`
	ColumnID  string `json:"columnId,omitempty"`
	SprintID  string `json:"sprintId,omitempty"`
}

func (e TicketEvent) Channel() string { return ProjectChannel(e.ProjectID) }

// LabelEvent covers label.* events.
type LabelEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
	LabelID   string `json:"labelId"`
}

func (e LabelEvent) Channel() string { return ProjectChannel(e.ProjectID) }

// SprintEvent covers sprint.* events.
type SprintEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
	SprintID  string `json:"sprintId"`
}

func (e SprintEvent) Channel() string { return ProjectChannel(e.ProjectID) }

// CommentEvent covers comment.* events.
type CommentEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
	TicketID  string `json:"ticketId"`
	CommentID string `json:"commentId"`
}

func (e CommentEvent) Channel() string { return ProjectChannel(e.ProjectID) }

// MemberEvent covers member.* events. MemberID is the affected user,
// which may differ from the acting UserID in the envelope.
type MemberEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
	MemberID  string `json:"memberId"`
	Role      string `json:"role,omitempty"`
}

func (e MemberEvent) Channel() string { return ProjectChannel(e.ProjectID) }

// ProjectEvent covers project.* lifecycle events.
type ProjectEvent struct {
	Envelope
	ProjectID string `json:"projectId"`
}

func (e ProjectEvent) Channel() string { return ChannelProjects }

// UserEvent covers user.* events, visible to every authenticated user.
type UserEvent struct {
	Envelope
	TargetUserID string `json:"targetUserId"`
}

func (e UserEvent) Channel() string { return ChannelUsers }

// BrandingEvent announces instance branding changes.
type BrandingEvent struct {
	Envelope
}

func (e BrandingEvent) Channel() string { return ChannelBranding }

// SettingsEvent announces instance settings changes.
type SettingsEvent struct {
	Envelope
}

func (e SettingsEvent) Channel() string { return ChannelSettings }
