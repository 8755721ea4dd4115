package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNames(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, UpdateChannelName("a1"), UpdateChannelName("a1"))
		assert.Equal(t, PresenceChannelName("a1"), PresenceChannelName("a1"))
	})
	t.Run("injective", func(t *testing.T) {
		assert.NotEqual(t, UpdateChannelName("a1"), UpdateChannelName("a2"))
		assert.NotEqual(t, PresenceChannelName("a1"), PresenceChannelName("a2"))
	})
	t.Run("update and presence channels never collide", func(t *testing.T) {
		assert.NotEqual(t, UpdateChannelName("a1"), PresenceChannelName("a1"))
	})
	t.Run("presence naming convention", func(t *testing.T) {
		assert.Equal(t, "presence-asset-a1", PresenceChannelName("a1"))
		assert.Equal(t, "private-asset-a1", UpdateChannelName("a1"))
	})
	t.Run("pair", func(t *testing.T) {
		pair := PairFor("a1")
		assert.Equal(t, UpdateChannelName("a1"), pair.UpdateChannel)
		assert.Equal(t, PresenceChannelName("a1"), pair.PresenceChannel)
	})
}
