package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-iacone88/booksearch/internal/auth"
	"github.com/p-iacone88/booksearch/internal/cache"
	"github.com/p-iacone88/booksearch/internal/config"
	"github.com/p-iacone88/booksearch/internal/db"
	"github.com/p-iacone88/booksearch/internal/graph"
	httpx "github.com/p-iacone88/booksearch/internal/http"
	"github.com/p-iacone88/booksearch/internal/http/handlers"
	"github.com/p-iacone88/booksearch/internal/observability"
	"github.com/p-iacone88/booksearch/internal/redisclient"
	"github.com/p-iacone88/booksearch/internal/repo/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()

	if err != nil {
		slog.Error("config failed", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		ServiceName: "booksearch-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})

	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	// metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	// document store
	connCtx, cancelConn := config.WithTimeout(time.Minute)
	mongoClient, err := db.ConnectWithRetry(connCtx, cfg.MongoURI, 5, log)
	cancelConn()

	if err != nil {
		log.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}

	database := mongoClient.Database(cfg.MongoDB)

	idxCtx, cancelIdx := config.WithTimeout(10 * time.Second)
	err = db.EnsureUserIndexes(idxCtx, database)
	cancelIdx()

	if err != nil {
		log.Error("ensure indexes failed", "err", err)
		os.Exit(1)
	}

	usersRepo := mongodb.NewUsersRepo(database, prom)

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	if err != nil {
		log.Error("auth manager init failed", "err", err)
		os.Exit(1)
	}

	// profile cache
	var (
		profiles cache.Profiles
		rdb      *redisclient.Client
	)

	if cfg.RedisAddr != "" {
		rdb = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancelPing := config.WithTimeout(2 * time.Second)
		err = rdb.Check(pingCtx)
		cancelPing()

		if err != nil {
			log.Error("redis ping failed", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}

		// a sick redis must not slow down the me query
		profiles = cache.NewProtectedProfiles(
			cache.NewRedisProfiles(rdb, cfg.ProfileCacheTTL),
			cache.ProtectedConfig{},
		)
	} else {
		profiles = cache.NewMemoryProfiles(cfg.ProfileCacheTTL)
	}

	gqlServer, err := graph.NewServer(graph.Deps{
		Users:    usersRepo,
		Tokens:   tokens,
		Profiles: profiles,
		Log:      log,
		Prom:     prom,
	})

	if err != nil {
		log.Error("schema build failed", "err", err)
		os.Exit(1)
	}

	health := handlers.NewHealthHandler(usersRepo.Ping)

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.RouterDeps{
		GraphQL:  gqlServer,
		Tokens:   tokens,
		Health:   health,
		Prom:     prom,
		Gatherer: reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	// fail readiness first so no new traffic is routed here
	health.SetDraining()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		err = mongoClient.Disconnect(ctx)

		if err != nil {
			log.Error("mongo disconnect failed", "err", err)
		}

		if rdb != nil {
			err = rdb.Close()

			if err != nil {
				log.Error("redis close failed", "err", err)
			}
		}

		err = shutdownTracer(ctx)

		if err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
