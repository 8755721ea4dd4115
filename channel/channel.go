// Package channel maps an asset id to its two realtime channel names.
package channel

const (
	updatePrefix   = "private-asset-"
	presencePrefix = "presence-asset-"
)

type AssetChannelPair struct {
	UpdateChannel   string
	PresenceChannel string
}

// UpdateChannelName is the private channel carrying annotation, reply
// and cursor events for an asset.
func UpdateChannelName(assetId string) string {
	return updatePrefix + assetId
}

// PresenceChannelName carries the "presence-" prefix the transport
// requires to enable membership tracking.
func PresenceChannelName(assetId string) string {
	return presencePrefix + assetId
}

func PairFor(assetId string) AssetChannelPair {
	return AssetChannelPair{
		UpdateChannel:   UpdateChannelName(assetId),
		PresenceChannel: PresenceChannelName(assetId),
	}
}
