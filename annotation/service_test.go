package annotation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpjaydus/pixelpin/annotation/annotationcache"
	"github.com/jpjaydus/pixelpin/annotation/annotationrepo"
	"github.com/jpjaydus/pixelpin/channel"
	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/gateway"
	"github.com/jpjaydus/pixelpin/transport"
	"github.com/jpjaydus/pixelpin/transport/memtransport"
)

var ctx = context.Background()

func author() domain.Author {
	return domain.Author{Id: "u1", Name: "Ann", Email: "ann@example.com"}
}

func TestService_CreateAnnotation(t *testing.T) {
	fx := newFixture(t, memtransport.New())
	received := fx.subscribeUpdates(t, "a1")

	created, err := fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId:  "a1",
		Content:  "button is cut off",
		Type:     domain.AnnotationTypeRectangle,
		Position: domain.Position{X: 10, Y: 20},
		Author:   author(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, domain.AnnotationStatusOpen, created.Status)
	assert.NotZero(t, created.CreatedAt)

	require.Len(t, received(), 1)
	ev := received()[0].(events.AnnotationCreated)
	assert.Equal(t, created, ev.Annotation)

	list, err := fx.ListAnnotations(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Id, list[0].Id)
}

func TestService_MutationSurvivesBrokenTransport(t *testing.T) {
	fx := newFixture(t, &brokenTransport{})
	created, err := fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId: "a1",
		Content: "still persisted",
		Type:    domain.AnnotationTypeComment,
		Author:  author(),
	})
	require.NoError(t, err)

	list, err := fx.ListAnnotations(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Id, list[0].Id)
}

func TestService_UpdateAndDelete(t *testing.T) {
	fx := newFixture(t, memtransport.New())
	created, err := fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId: "a1", Content: "v1", Type: domain.AnnotationTypeComment, Author: author(),
	})
	require.NoError(t, err)
	received := fx.subscribeUpdates(t, "a1")

	status := domain.AnnotationStatusResolved
	updated, err := fx.UpdateAnnotation(ctx, "a1", created.Id, annotationrepo.UpdatePatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, status, updated.Status)

	require.NoError(t, fx.DeleteAnnotation(ctx, "a1", created.Id))
	evs := received()
	require.Len(t, evs, 2)
	assert.Equal(t, updated, evs[0].(events.AnnotationUpdated).Annotation)
	assert.Equal(t, events.AnnotationDeleted{Id: created.Id}, evs[1])

	err = fx.DeleteAnnotation(ctx, "a1", created.Id)
	assert.ErrorIs(t, err, annotationrepo.ErrNotFound)
}

func TestService_CreateReply(t *testing.T) {
	fx := newFixture(t, memtransport.New())
	created, err := fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId: "a1", Content: "v1", Type: domain.AnnotationTypeComment, Author: author(),
	})
	require.NoError(t, err)
	received := fx.subscribeUpdates(t, "a1")

	reply, err := fx.CreateReply(ctx, CreateReplyRequest{
		AssetId:      "a1",
		AnnotationId: created.Id,
		Content:      "fixed in next build",
		Author:       author(),
	})
	require.NoError(t, err)
	require.Len(t, received(), 1)
	assert.Equal(t, reply, received()[0].(events.ReplyCreated).Reply)

	t.Run("missing annotation", func(t *testing.T) {
		_, err = fx.CreateReply(ctx, CreateReplyRequest{AssetId: "a1", AnnotationId: "missing", Author: author()})
		assert.ErrorIs(t, err, annotationrepo.ErrNotFound)
		assert.Len(t, received(), 1, "a failed mutation must not broadcast")
	})
}

func TestService_ListUsesCache(t *testing.T) {
	fx := newFixture(t, memtransport.New())
	_, err := fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId: "a1", Content: "v1", Type: domain.AnnotationTypeComment, Author: author(),
	})
	require.NoError(t, err)

	_, err = fx.ListAnnotations(ctx, "a1")
	require.NoError(t, err)
	loads := fx.repo.listCalls
	_, err = fx.ListAnnotations(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, loads, fx.repo.listCalls, "second list within the TTL hits the cache")

	// a mutation invalidates the cached asset
	_, err = fx.CreateAnnotation(ctx, CreateAnnotationRequest{
		AssetId: "a1", Content: "v2", Type: domain.AnnotationTypeComment, Author: author(),
	})
	require.NoError(t, err)
	list, err := fx.ListAnnotations(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Greater(t, fx.repo.listCalls, loads)
}

type fixture struct {
	Service
	repo      *testRepo
	transport transport.Transport
	a         *app.App
}

func newFixture(t *testing.T, tr transport.Transport) *fixture {
	fx := &fixture{
		Service:   New(),
		repo:      newTestRepo(),
		transport: tr,
		a:         new(app.App),
	}
	fx.a.Register(&testConfig{}).
		Register(tr).
		Register(gateway.New()).
		Register(fx.repo).
		Register(annotationcache.New()).
		Register(fx.Service)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

// subscribeUpdates collects decoded events from the asset's update
// channel; the returned func snapshots them.
func (fx *fixture) subscribeUpdates(t *testing.T, assetId string) func() []events.Event {
	sub, err := fx.transport.Subscribe(ctx, channel.UpdateChannelName(assetId), transport.SubscribeOptions{})
	require.NoError(t, err)
	var mu sync.Mutex
	var got []events.Event
	for _, name := range []string{
		events.NameAnnotationCreated,
		events.NameAnnotationUpdated,
		events.NameAnnotationDeleted,
		events.NameReplyCreated,
	} {
		name := name
		sub.Bind(name, func(data []byte) {
			ev, err := events.Decode(name, data)
			require.NoError(t, err)
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		})
	}
	return func() []events.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.Event(nil), got...)
	}
}

type testConfig struct{}

func (c *testConfig) Init(a *app.App) (err error) { return nil }
func (c *testConfig) Name() string                { return "config" }

func (c *testConfig) GetCache() annotationcache.Config {
	return annotationcache.Config{TTLSec: 60}
}

func newTestRepo() *testRepo {
	return &testRepo{byId: make(map[string]domain.Annotation)}
}

type testRepo struct {
	mu        sync.Mutex
	byId      map[string]domain.Annotation
	order     []string
	listCalls int
}

func (r *testRepo) Init(a *app.App) (err error)         { return nil }
func (r *testRepo) Name() string                        { return annotationrepo.CName }
func (r *testRepo) Run(ctx context.Context) (err error) { return nil }
func (r *testRepo) Close(ctx context.Context) error     { return nil }

func (r *testRepo) AnnotationCreate(ctx context.Context, a domain.Annotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byId[a.Id] = a
	r.order = append(r.order, a.Id)
	return nil
}

func (r *testRepo) AnnotationUpdate(ctx context.Context, assetId, id string, patch annotationrepo.UpdatePatch) (domain.Annotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byId[id]
	if !ok || a.AssetId != assetId {
		return domain.Annotation{}, annotationrepo.ErrNotFound
	}
	if patch.Content != nil {
		a.Content = *patch.Content
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Position != nil {
		a.Position = *patch.Position
	}
	r.byId[id] = a
	return a, nil
}

func (r *testRepo) AnnotationDelete(ctx context.Context, assetId, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byId[id]
	if !ok || a.AssetId != assetId {
		return annotationrepo.ErrNotFound
	}
	delete(r.byId, id)
	return nil
}

func (r *testRepo) ReplyAdd(ctx context.Context, reply domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byId[reply.AnnotationId]
	if !ok {
		return annotationrepo.ErrNotFound
	}
	a.Replies = append(a.Replies, reply)
	r.byId[reply.AnnotationId] = a
	return nil
}

func (r *testRepo) ListByAsset(ctx context.Context, assetId string) (list []domain.Annotation, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	for _, id := range r.order {
		if a, ok := r.byId[id]; ok && a.AssetId == assetId {
			list = append(list, a)
		}
	}
	return list, nil
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
