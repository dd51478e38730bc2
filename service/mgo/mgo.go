package mgo

import (
	"context"
	"sync"
	"time"

	appconf "ChatRelay/config"
	"ChatRelay/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	mu sync.RWMutex
	db *mongo.Database
)

// Init 连接 MongoDB（带重试），成功后设置全局 database 句柄。
func Init(ctx context.Context, cfg appconf.Mongo) error {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize))

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return errs.WrapMsg(err, "failed to connect to MongoDB")
	}

	mu.Lock()
	db = cli.Database(cfg.Database)
	mu.Unlock()
	return nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return cli, nil
}

// GetDB returns the shared database handle; nil before Init succeeds.
func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	return db
}

func Close(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if db == nil {
		return nil
	}
	err := db.Client().Disconnect(ctx)
	db = nil
	return err
}
