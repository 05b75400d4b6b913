package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"matchbroker/internal/analytics"
	"matchbroker/internal/auth"
	"matchbroker/internal/config"
	"matchbroker/internal/fanout"
	"matchbroker/internal/gateway"
	"matchbroker/internal/ice"
	"matchbroker/internal/logging"
	"matchbroker/internal/matching"
	"matchbroker/internal/profile"
	"matchbroker/internal/reaper"
	"matchbroker/internal/session"
	signalrouter "matchbroker/internal/signal"
	"matchbroker/internal/store"
	httptransport "matchbroker/internal/transport/http"
	"matchbroker/internal/transport/ws"
)

func main() {
	log := logging.For("main")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.SingleNode() {
		log.Warn("REDIS_URL not set; cross-replica lease and fan-out are moot with a single instance, but the queue/session key layout still requires a reachable Redis")
	}

	redisAddr := cfg.RedisURL
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: trimRedisScheme(redisAddr)})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.WithError(err).Fatal("failed to connect to redis")
	}
	cancel()
	defer rdb.Close()
	log.Info("connected to redis")

	var mongoClient *mongo.Client
	if cfg.MongoURL != "" {
		var err error
		mongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			log.WithError(err).Warn("failed to connect to mongo, analytics sink disabled")
			mongoClient = nil
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := mongoClient.Ping(pingCtx, nil); err != nil {
				log.WithError(err).Warn("failed to ping mongo, analytics sink disabled")
				mongoClient = nil
			}
			cancel()
		}
	}
	if mongoClient != nil {
		defer mongoClient.Disconnect(ctx)
		log.Info("connected to mongo")
	}

	sink := analytics.NewSink(mongoClient, cfg.MongoDB)

	queueStore := store.NewQueueStore(rdb)
	sessionStore := store.NewSessionStore(rdb)
	socketRegistry := store.NewSocketRegistry(rdb)
	banGate := store.NewBanGate(rdb)
	lease := store.NewLease(rdb)

	minter := ice.NewMinter(turnEndpoint(cfg.GameTurnURL, cfg.GameTurnSecret), turnEndpoint(cfg.VideoTurnURL, cfg.VideoTurnSecret))
	authSvc := auth.NewService(cfg.JWTSecret, cfg.MatchmakingServerKey)
	profileClient := profile.NewClient(cfg.ProfileServiceURL, cfg.ProfileServiceToken)

	hub := ws.NewHub()
	var fanoutRDB *redis.Client
	if !cfg.SingleNode() {
		fanoutRDB = rdb
	}
	fan := fanout.NewFanout(fanoutRDB, hub)
	go fan.Listen(ctx)

	sessionRegistry := session.NewRegistry(sessionStore, socketRegistry, queueStore, minter, fan, sink, profileClient)
	router := signalrouter.NewRouter(socketRegistry, sessionStore, fan)

	gw := gateway.New(queueStore, socketRegistry, banGate, sessionRegistry, router, minter, profileClient, fan, hub)
	wsHandler := ws.NewHandler(hub, authSvc, gw)

	engine := matching.NewEngine(queueStore, fan, sessionRegistry, int64(cfg.MatchBatchSize))
	tickLeader := matching.NewTickLeader(lease, engine, cfg.TickInterval, cfg.TickLeaseTTL)
	go tickLeader.Run(ctx)

	reap := reaper.NewReaper(sessionStore, fan, sink, cfg.PendingRoomTTL)
	scheduler, err := reap.Start(ctx, cfg.ReaperInterval)
	if err != nil {
		log.WithError(err).Fatal("failed to start reaper")
	}
	defer scheduler.Shutdown()

	handler := httptransport.NewRouter(cfg.SocketIOPath, wsHandler)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen and serve failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server exited")
}

func trimRedisScheme(addr string) string {
	const scheme = "redis://"
	if len(addr) > len(scheme) && addr[:len(scheme)] == scheme {
		return addr[len(scheme):]
	}
	return addr
}

func turnEndpoint(url, secret string) *ice.TurnEndpoint {
	if url == "" || secret == "" {
		return nil
	}
	return &ice.TurnEndpoint{URL: url, Secret: secret}
}
