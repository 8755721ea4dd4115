// Package events is the closed catalog of event types exchanged on an
// asset's update channel. Both ends of the transport compile against
// this catalog; adding a tag is a protocol change, not a runtime
// negotiation.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jpjaydus/pixelpin/domain"
)

const (
	NameAnnotationCreated = "annotation-created"
	NameAnnotationUpdated = "annotation-updated"
	NameAnnotationDeleted = "annotation-deleted"
	NameReplyCreated      = "reply-created"
	// NameCursorMoved is client-originated; the "client-" prefix marks
	// events that never pass through the server side.
	NameCursorMoved = "client-cursor-move"

	// Transport-native presence signals.
	NameMemberAdded   = "member_added"
	NameMemberRemoved = "member_removed"
)

var ErrUnknownEvent = errors.New("unknown event")

// Event is a sealed union: one variant per catalog entry.
type Event interface {
	Name() string
	sealed()
}

type AnnotationCreated struct {
	domain.Annotation
}

func (AnnotationCreated) Name() string { return NameAnnotationCreated }
func (AnnotationCreated) sealed()      {}

type AnnotationUpdated struct {
	domain.Annotation
}

func (AnnotationUpdated) Name() string { return NameAnnotationUpdated }
func (AnnotationUpdated) sealed()      {}

type AnnotationDeleted struct {
	Id string `json:"id"`
}

func (AnnotationDeleted) Name() string { return NameAnnotationDeleted }
func (AnnotationDeleted) sealed()      {}

type ReplyCreated struct {
	domain.Reply
}

func (ReplyCreated) Name() string { return NameReplyCreated }
func (ReplyCreated) sealed()      {}

type CursorMoved struct {
	domain.CursorEvent
}

func (CursorMoved) Name() string { return NameCursorMoved }
func (CursorMoved) sealed()      {}

func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode is the single entry point from wire bytes into the union.
func Decode(name string, data []byte) (ev Event, err error) {
	switch name {
	case NameAnnotationCreated:
		var e AnnotationCreated
		err = json.Unmarshal(data, &e)
		ev = e
	case NameAnnotationUpdated:
		var e AnnotationUpdated
		err = json.Unmarshal(data, &e)
		ev = e
	case NameAnnotationDeleted:
		var e AnnotationDeleted
		err = json.Unmarshal(data, &e)
		ev = e
	case NameReplyCreated:
		var e ReplyCreated
		err = json.Unmarshal(data, &e)
		ev = e
	case NameCursorMoved:
		var e CursorMoved
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}
