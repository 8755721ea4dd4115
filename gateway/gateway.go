// Package gateway announces completed domain mutations on an asset's
// update channel. Persistence is the source of truth; realtime delivery
// is best-effort, so a broadcast failure is logged and swallowed and
// never reaches the mutation caller.
package gateway

import (
	"context"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.uber.org/zap"

	"github.com/jpjaydus/pixelpin/channel"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/transport"
)

const CName = "realtime.gateway"

var log = logger.NewNamed(CName)

func New() Gateway {
	return new(realtimeGateway)
}

type Gateway interface {
	app.Component
	// Publish emits exactly one message per call: no batching, no
	// deduplication, no delivery acknowledgement.
	Publish(ctx context.Context, assetId string, ev events.Event)
}

type realtimeGateway struct {
	transport transport.Transport
}

func (g *realtimeGateway) Init(a *app.App) (err error) {
	g.transport = a.MustComponent(transport.CName).(transport.Transport)
	return nil
}

func (g *realtimeGateway) Name() (name string) {
	return CName
}

func (g *realtimeGateway) Publish(ctx context.Context, assetId string, ev events.Event) {
	if err := g.transport.Publish(ctx, channel.UpdateChannelName(assetId), ev.Name(), ev); err != nil {
		log.Warn("realtime publish failed",
			zap.String("assetId", assetId),
			zap.String("event", ev.Name()),
			zap.Error(err))
	}
}
