// Package api is the HTTP mutation surface feeding the
// persist-then-broadcast flow. Authentication sits in front of it and
// is out of scope here; the acting author arrives in the request body.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.uber.org/zap"

	"github.com/jpjaydus/pixelpin/annotation"
)

func New() Api {
	return new(apiServer)
}

const CName = "api"

var log = logger.NewNamed(CName)

type Api interface {
	app.ComponentRunnable
}

type apiServer struct {
	mux        *http.ServeMux
	server     *http.Server
	annotation annotation.Service
	config     Config
}

func (s *apiServer) Name() (name string) {
	return CName
}

func (s *apiServer) Init(a *app.App) (err error) {
	s.annotation = a.MustComponent(annotation.CName).(annotation.Service)
	s.config = a.MustComponent("config").(configGetter).GetApi()
	s.mux = http.NewServeMux()
	h := handler{s: s}
	h.init(s.mux)
	s.server = &http.Server{Addr: s.config.Addr, Handler: s.mux}
	return nil
}

func (s *apiServer) Run(ctx context.Context) (err error) {
	var errCh = make(chan error)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	select {
	case err = <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
		log.Info("api server started", zap.String("addr", s.config.Addr))
		return
	}
}

func (s *apiServer) Close(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
