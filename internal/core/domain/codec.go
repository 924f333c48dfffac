package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/corkboard/realtime-backend/internal/core/errors"
)

// DecodeEvent unmarshals one wire event into its concrete type,
// dispatching on the family prefix of the "type" field.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}
	if head.Type == "" {
		return nil, apperrors.ErrUnknownEventType
	}

	var (
		ev  Event
		err error
	)
	switch head.Type.Family() {
	case "ticket":
		var e TicketEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "label":
		var e LabelEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "sprint":
		var e SprintEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "comment":
		var e CommentEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "member":
		var e MemberEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "project":
		var e ProjectEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "user":
		var e UserEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "branding":
		var e BrandingEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case "settings":
		var e SettingsEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEventType, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Type.Family(), err)
	}
	return ev, nil
}
