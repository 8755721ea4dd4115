package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.uber.org/zap"

	"github.com/jpjaydus/pixelpin/annotation"
	"github.com/jpjaydus/pixelpin/annotation/annotationcache"
	"github.com/jpjaydus/pixelpin/annotation/annotationrepo"
	"github.com/jpjaydus/pixelpin/api"
	"github.com/jpjaydus/pixelpin/config"
	"github.com/jpjaydus/pixelpin/connmanager"
	"github.com/jpjaydus/pixelpin/db"
	"github.com/jpjaydus/pixelpin/gateway"
	"github.com/jpjaydus/pixelpin/identity"
	"github.com/jpjaydus/pixelpin/redisprovider"
	"github.com/jpjaydus/pixelpin/session"
	"github.com/jpjaydus/pixelpin/transport/redistransport"
)

var log = logger.NewNamed("main")

var configPath = flag.String("c", "config.yml", "path to the config file")

func main() {
	flag.Parse()
	conf, err := config.NewFromFile(*configPath)
	if err != nil {
		log.Fatal("can't open config file", zap.Error(err))
	}

	a := new(app.App)
	a.Register(conf).
		Register(db.New()).
		Register(redisprovider.New()).
		Register(redistransport.New()).
		Register(gateway.New()).
		Register(identity.New()).
		Register(session.New()).
		Register(connmanager.New()).
		Register(annotationrepo.New()).
		Register(annotationcache.New()).
		Register(annotation.New()).
		Register(api.New())

	ctx := context.Background()
	if err = a.Start(ctx); err != nil {
		log.Fatal("can't start app", zap.Error(err))
	}
	log.Info("app started")

	// explicit, signal-driven teardown: every component's Close runs
	// exactly once here
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	closeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err = a.Close(closeCtx); err != nil {
		log.Fatal("close error", zap.Error(err))
	}
	log.Info("app stopped")
}
