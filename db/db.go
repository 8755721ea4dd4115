package db

import (
	"context"

	"github.com/anyproto/any-sync/app"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CName = "db"

type Mongo struct {
	Connect  string `yaml:"connect"`
	Database string `yaml:"database"`
}

type configGetter interface {
	GetMongo() Mongo
}

func New() Database {
	return new(database)
}

type Database interface {
	app.ComponentRunnable
	Db() *mongo.Database
	Tx(ctx context.Context, fn func(txCtx mongo.SessionContext) error) error
}

type database struct {
	conf   Mongo
	client *mongo.Client
	db     *mongo.Database
}

func (d *database) Init(a *app.App) (err error) {
	d.conf = a.MustComponent("config").(configGetter).GetMongo()
	if d.client, err = mongo.Connect(context.Background(), options.Client().ApplyURI(d.conf.Connect)); err != nil {
		return err
	}
	d.db = d.client.Database(d.conf.Database)
	return nil
}

func (d *database) Name() (name string) {
	return CName
}

func (d *database) Run(ctx context.Context) (err error) {
	return d.client.Ping(ctx, nil)
}

func (d *database) Db() *mongo.Database {
	return d.db
}

func (d *database) Tx(ctx context.Context, fn func(txCtx mongo.SessionContext) error) error {
	sess, err := d.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(txCtx mongo.SessionContext) (any, error) {
		return nil, fn(txCtx)
	})
	return err
}

func (d *database) Close(ctx context.Context) (err error) {
	return d.client.Disconnect(ctx)
}
