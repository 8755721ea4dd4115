package api

type configGetter interface {
	GetApi() Config
}

type Config struct {
	Addr string `yaml:"addr"`
}
