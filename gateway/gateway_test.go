package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpjaydus/pixelpin/channel"
	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/transport"
	"github.com/jpjaydus/pixelpin/transport/memtransport"
)

var ctx = context.Background()

func TestGateway_Publish(t *testing.T) {
	fx := newFixture(t, memtransport.New())
	sub, err := fx.transport.Subscribe(ctx, channel.UpdateChannelName("a1"), transport.SubscribeOptions{})
	require.NoError(t, err)
	var got int
	sub.Bind(events.NameAnnotationCreated, func([]byte) { got++ })

	fx.Publish(ctx, "a1", events.AnnotationCreated{Annotation: domain.Annotation{Id: "an1", AssetId: "a1"}})
	// exactly one message per call
	assert.Equal(t, 1, got)
	fx.Publish(ctx, "a1", events.AnnotationCreated{Annotation: domain.Annotation{Id: "an1", AssetId: "a1"}})
	assert.Equal(t, 2, got)
}

func TestGateway_PublishSwallowsTransportFailure(t *testing.T) {
	fx := newFixture(t, &brokenTransport{})
	// must return normally: the mutation is already persisted and the
	// broadcast is best-effort
	fx.Publish(ctx, "a1", events.AnnotationDeleted{Id: "an1"})
}

type fixture struct {
	Gateway
	transport transport.Transport
	a         *app.App
}

func newFixture(t *testing.T, tr transport.Transport) *fixture {
	fx := &fixture{
		Gateway:   New(),
		transport: tr,
		a:         new(app.App),
	}
	fx.a.Register(tr).Register(fx.Gateway)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

type brokenTransport struct{}

func (b *brokenTransport) Init(a *app.App) (err error) { return nil }
func (b *brokenTransport) Name() string                { return transport.CName }

func (b *brokenTransport) Subscribe(ctx context.Context, channel string, opts transport.SubscribeOptions) (transport.Subscription, error) {
	return nil, errors.New("transport down")
}

func (b *brokenTransport) Publish(ctx context.Context, channel, event string, payload any) error {
	return errors.New("transport down")
}
