package redisprovider

import (
	"context"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const CName = "redisprovider"

var log = logger.NewNamed(CName)

type configGetter interface {
	GetRedis() Config
}

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func New() Service {
	return new(redisProvider)
}

type Service interface {
	app.ComponentRunnable
	Client() *redis.Client
}

type redisProvider struct {
	client *redis.Client
}

func (r *redisProvider) Init(a *app.App) (err error) {
	conf := a.MustComponent("config").(configGetter).GetRedis()
	r.client = redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	return nil
}

func (r *redisProvider) Name() (name string) {
	return CName
}

func (r *redisProvider) Run(ctx context.Context) (err error) {
	if err = r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	log.Info("connected to redis", zap.String("addr", r.client.Options().Addr))
	return nil
}

func (r *redisProvider) Client() *redis.Client {
	return r.client
}

func (r *redisProvider) Close(ctx context.Context) (err error) {
	return r.client.Close()
}
