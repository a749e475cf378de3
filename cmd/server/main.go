package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/config"
	"github.com/example/carpool/internal/dispatch"
	"github.com/example/carpool/internal/geo"
	httpapi "github.com/example/carpool/internal/http"
	"github.com/example/carpool/internal/ingest"
	"github.com/example/carpool/internal/logging"
	"github.com/example/carpool/internal/query"
	"github.com/example/carpool/internal/reservation"
	"github.com/example/carpool/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("carpool-api", "info").Error("bad configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("carpool-api", cfg.LogLevel)

	var rideStore storage.RideStore
	var userStore auth.UserStore
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		if cfg.RunMigrations {
			if err := runMigrations(ps); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		rideStore = ps
		userStore = auth.NewPostgresUsers(ps.DB())
		logger.Info("using postgres store")
	} else {
		rideStore = storage.NewMemoryStore()
		userStore = auth.NewMemoryUsers()
		logger.Info("using in-memory store")
	}

	var geoIdx geo.Geo
	if cfg.RedisAddr != "" {
		geoIdx = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		logger.Info("using redis geo index", "key", cfg.RedisGeoKey)
	} else {
		geoIdx = geo.NewIndex()
	}

	var events reservation.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		events = kp
		logger.Info("publishing ride events", "topic", cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(userStore, tokens)
	engine := reservation.NewEngine(rideStore, events, wsreg, logger)
	queries := query.NewService(rideStore, geoIdx)

	srv := httpapi.NewServer(httpapi.Deps{
		Logger:        logger,
		Auth:          authSvc,
		Engine:        engine,
		Queries:       queries,
		Store:         rideStore,
		Geo:           geoIdx,
		Events:        events,
		WSRegistry:    wsreg,
		DefaultRadius: cfg.DefaultRadiusMeters,
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("carpool api listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("bye")
}

func runMigrations(ps *storage.PostgresStore) error {
	b, err := os.ReadFile(filepath.Join("migrations", "001_init.sql"))
	if err != nil {
		return err
	}
	_, err = ps.DB().Exec(string(b))
	return err
}
