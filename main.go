package main

import (
	"context"
	"flag"
	"time"

	appconf "ChatRelay/config"
	"ChatRelay/logger"
	"ChatRelay/middleware"
	msgstore "ChatRelay/module/message"
	user "ChatRelay/module/user"
	"ChatRelay/service/chat"
	"ChatRelay/service/mgo"
	"ChatRelay/service/storage"
	"ChatRelay/tools/ids"
	security "ChatRelay/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {
	cfgPath := flag.String("config", "", "path to yaml config (optional)")
	flag.Parse()

	cfg, err := appconf.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ids.SetNodeID(1)
	gatewayID := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := mgo.Init(ctx, cfg.Mongo); err != nil {
		logger.Fatalf("mongo init: %v", err)
	}
	logger.Infof("mongo connected db=%s", cfg.Mongo.Database)

	mirror, err := storage.NewPresence(storage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, gatewayID, cfg.Server.PingInterval.Std()*4)
	if err != nil {
		logger.Fatalf("redis init: %v", err)
	}
	defer mirror.Close()

	jwtOpts := security.Options{
		Secret: []byte(cfg.JWT.Secret),
		Alg:    cfg.JWT.Alg,
		TTL:    cfg.JWT.TTL.Std(),
	}

	reg := chat.NewRegistry()
	router := chat.NewRouter(reg, msgstore.NewStore())
	presence := chat.NewBroadcaster(reg)
	presence.Start()
	defer presence.Close()

	srv := chat.NewServer(chat.ServerConf{
		GatewayID:     gatewayID,
		PingInterval:  cfg.Server.PingInterval.Std(),
		PongGrace:     cfg.Server.PongGrace.Std(),
		SendQueueSize: cfg.Server.SendQueueSize,
	}, reg, router, presence, mirror, jwtOpts)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Origin(cfg.Server.AllowedOrigin))

	api := user.NewHandler(jwtOpts, msgstore.NewStore())
	api.Mount(engine, middleware.Auth(jwtOpts))
	engine.GET("/ws", srv.HandleWS)

	logger.Infof("gateway %s listening on %s", gatewayID, cfg.Server.Addr)
	if err := engine.Run(cfg.Server.Addr); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
