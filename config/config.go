package config

import (
	"os"

	"github.com/anyproto/any-sync/app"
	"gopkg.in/yaml.v3"

	"github.com/jpjaydus/pixelpin/annotation/annotationcache"
	"github.com/jpjaydus/pixelpin/api"
	"github.com/jpjaydus/pixelpin/db"
	"github.com/jpjaydus/pixelpin/identity"
	"github.com/jpjaydus/pixelpin/redisprovider"
	"github.com/jpjaydus/pixelpin/transport/redistransport"
)

const CName = "config"

func NewFromFile(path string) (c *Config, err error) {
	c = &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return
}

type Config struct {
	Mongo    db.Mongo               `yaml:"mongo"`
	Redis    redisprovider.Config   `yaml:"redis"`
	Realtime redistransport.Config  `yaml:"realtime"`
	Api      api.Config             `yaml:"api"`
	Cache    annotationcache.Config `yaml:"cache"`
	Identity identity.Config        `yaml:"identity"`
}

func (c *Config) Init(a *app.App) (err error) {
	return nil
}

func (c *Config) Name() (name string) {
	return CName
}

func (c *Config) GetMongo() db.Mongo {
	return c.Mongo
}

func (c *Config) GetRedis() redisprovider.Config {
	return c.Redis
}

func (c *Config) GetRealtime() redistransport.Config {
	return c.Realtime
}

func (c *Config) GetApi() api.Config {
	return c.Api
}

func (c *Config) GetCache() annotationcache.Config {
	return c.Cache
}

func (c *Config) GetIdentity() identity.Config {
	return c.Identity
}
