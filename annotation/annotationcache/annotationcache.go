// Package annotationcache is a TTL-keyed read cache over the annotation
// repo. It is a constructed component with an explicit TTL from config;
// no ambient package-level instance exists, so tests build isolated
// ones.
package annotationcache

import (
	"context"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/app/ocache"

	"github.com/jpjaydus/pixelpin/annotation/annotationrepo"
	"github.com/jpjaydus/pixelpin/domain"
)

const CName = "annotation.cache"

var log = logger.NewNamed(CName)

const defaultTTL = 30 * time.Second

type configGetter interface {
	GetCache() Config
}

type Config struct {
	TTLSec int `yaml:"ttlSec"`
}

func New() Cache {
	return new(annotationCache)
}

type Cache interface {
	app.ComponentRunnable
	Annotations(ctx context.Context, assetId string) ([]domain.Annotation, error)
	Invalidate(ctx context.Context, assetId string)
}

type annotationCache struct {
	repo  annotationrepo.AnnotationRepo
	cache ocache.OCache
}

func (c *annotationCache) Init(a *app.App) (err error) {
	c.repo = a.MustComponent(annotationrepo.CName).(annotationrepo.AnnotationRepo)
	ttl := defaultTTL
	if conf := a.MustComponent("config").(configGetter).GetCache(); conf.TTLSec > 0 {
		ttl = time.Duration(conf.TTLSec) * time.Second
	}
	c.cache = ocache.New(c.load,
		ocache.WithLogger(log.Sugar()),
		ocache.WithTTL(ttl),
		ocache.WithGCPeriod(time.Minute),
	)
	return nil
}

func (c *annotationCache) Name() (name string) {
	return CName
}

func (c *annotationCache) Run(ctx context.Context) (err error) {
	return nil
}

func (c *annotationCache) load(ctx context.Context, assetId string) (object ocache.Object, err error) {
	list, err := c.repo.ListByAsset(ctx, assetId)
	if err != nil {
		return nil, err
	}
	return &assetAnnotations{list: list}, nil
}

func (c *annotationCache) Annotations(ctx context.Context, assetId string) ([]domain.Annotation, error) {
	obj, err := c.cache.Get(ctx, assetId)
	if err != nil {
		return nil, err
	}
	return obj.(*assetAnnotations).list, nil
}

func (c *annotationCache) Invalidate(ctx context.Context, assetId string) {
	_, _ = c.cache.Remove(ctx, assetId)
}

func (c *annotationCache) Close(ctx context.Context) (err error) {
	return c.cache.Close()
}

type assetAnnotations struct {
	list []domain.Annotation
}

func (a *assetAnnotations) Close() (err error) {
	return nil
}

func (a *assetAnnotations) TryClose(objectTTL time.Duration) (res bool, err error) {
	return true, nil
}
