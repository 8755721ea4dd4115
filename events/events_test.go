package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpjaydus/pixelpin/domain"
)

func TestDecode(t *testing.T) {
	t.Run("annotation created", func(t *testing.T) {
		src := AnnotationCreated{Annotation: domain.Annotation{
			Id:      "an1",
			AssetId: "a1",
			Content: "looks off",
			Type:    domain.AnnotationTypeComment,
			Status:  domain.AnnotationStatusOpen,
			Author:  domain.Author{Id: "u1", Email: "u1@example.com"},
		}}
		data, err := Encode(src)
		require.NoError(t, err)
		ev, err := Decode(NameAnnotationCreated, data)
		require.NoError(t, err)
		assert.Equal(t, src, ev)
	})
	t.Run("annotation deleted carries only the id", func(t *testing.T) {
		data, err := Encode(AnnotationDeleted{Id: "an1"})
		require.NoError(t, err)
		ev, err := Decode(NameAnnotationDeleted, data)
		require.NoError(t, err)
		assert.Equal(t, AnnotationDeleted{Id: "an1"}, ev)
	})
	t.Run("reply created", func(t *testing.T) {
		src := ReplyCreated{Reply: domain.Reply{Id: "r1", AnnotationId: "an1", Content: "agreed"}}
		data, err := Encode(src)
		require.NoError(t, err)
		ev, err := Decode(NameReplyCreated, data)
		require.NoError(t, err)
		assert.Equal(t, src, ev)
	})
	t.Run("cursor moved", func(t *testing.T) {
		src := CursorMoved{CursorEvent: domain.CursorEvent{UserId: "u1", UserName: "Ann", X: 10, Y: 20, Timestamp: 123}}
		data, err := Encode(src)
		require.NoError(t, err)
		ev, err := Decode(NameCursorMoved, data)
		require.NoError(t, err)
		assert.Equal(t, src, ev)
	})
	t.Run("unknown event", func(t *testing.T) {
		_, err := Decode("annotation-exploded", []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})
	t.Run("malformed payload", func(t *testing.T) {
		_, err := Decode(NameAnnotationCreated, []byte(`{`))
		assert.Error(t, err)
	})
}
