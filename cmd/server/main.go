package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindspark/realtime/internal/config"
	"mindspark/realtime/internal/handlers"
	"mindspark/realtime/internal/hub"
	"mindspark/realtime/internal/jobs"
	"mindspark/realtime/internal/models"
	"mindspark/realtime/internal/presence"
	"mindspark/realtime/internal/repositories"
	"mindspark/realtime/internal/routers"
	"mindspark/realtime/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	gormOpen = func(driver, dsn string) (*gorm.DB, error) {
		var dialector gorm.Dialector
		switch driver {
		case "sqlite":
			dialector = sqlite.Open(dsn)
		default:
			dialector = postgres.Open(dsn)
		}
		return gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	}
	dbConnectTimeout = 30 * time.Second
	listen           = net.Listen
	// onListening is called with the bound address once the server accepts connections.
	onListening = func(string) {}
)

func connectWithRetry(driver, dsn string, timeout time.Duration, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	backoff := 100 * time.Millisecond
	var lastErr error

	for attempt := 1; ; attempt++ {
		db, err := gormOpen(driver, dsn)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					return db, nil
				}
				sqlDB.Close()
			} else {
				err = dbErr
			}
		}
		lastErr = err
		if time.Now().Add(backoff).After(deadline) {
			break
		}
		logger.Warn("database not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("connect to database: %w", lastErr)
}

func databaseDSN(cfg *config.Config) string {
	if cfg.DBDriver == "sqlite" {
		return cfg.SQLitePath
	}
	return cfg.DatabaseURL
}

func buildStores(db *gorm.DB) hub.Stores {
	return hub.Stores{
		Identities:    &repositories.ProfileRepository{DB: db},
		Rooms:         &repositories.RoomRepository{DB: db},
		Memberships:   &repositories.ParticipantRepository{DB: db},
		Messages:      &repositories.MessageRepository{DB: db},
		Friends:       &repositories.FriendshipRepository{DB: db},
		FocusSessions: &repositories.FocusSessionRepository{DB: db},
		Games:         &repositories.GameRepository{DB: db},
	}
}

func hubOptions(cfg *config.Config) hub.Options {
	return hub.Options{
		LivenessInterval:   cfg.LivenessInterval,
		MaxMessageLength:   cfg.MaxMessageLength,
		SendBuffer:         cfg.SendBuffer,
		MaxFrameBytes:      cfg.MaxFrameBytes,
		WriteTimeout:       cfg.WriteTimeout,
		StoreTimeout:       cfg.StoreTimeout,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	utils.InitLogger(cfg.LogLevel)
	logger := utils.GetLogger()
	defer logger.Sync()

	db, err := connectWithRetry(cfg.DBDriver, databaseDSN(cfg), dbConnectTimeout, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	rooms := &repositories.RoomRepository{DB: db}
	if err := rooms.SeedDefaultRooms(ctx); err != nil {
		return fmt.Errorf("seed default rooms: %w", err)
	}

	realtime := hub.New(utils.NewTokenVerifier(cfg.JWTSecret), buildStores(db), hubOptions(cfg), logger)

	var (
		rdb       *redis.Client
		tracker   *presence.Tracker
		refresher *jobs.PresenceRefresherJob
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}

		tracker = presence.NewTracker(rdb, cfg.PresenceTTL, logger)
		realtime.SetPresence(tracker)
		go tracker.Subscribe(ctx, realtime.HandleRemotePresence)

		refresher = jobs.NewPresenceRefresherJob(realtime, tracker, cfg.PresenceRefreshSchedule, cfg.StoreTimeout, logger)
		if err := refresher.Start(); err != nil {
			return err
		}
		defer refresher.Stop()
	} else {
		logger.Info("REDIS_ADDR not set, presence is local to this instance")
	}

	realtime.Start()

	healthChecks := map[string]handlers.Pinger{"database": sqlDB.PingContext}
	var lookup handlers.PresenceLookup
	if rdb != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		lookup = tracker
	}

	router := routers.New(routers.Handlers{
		WS:       handlers.NewWSHandler(realtime, handlers.NewOriginPolicy(cfg.AllowedOrigins, logger), logger),
		Health:   handlers.NewHealthHandler(healthChecks),
		Realtime: handlers.NewRealtimeHandler(realtime, lookup, logger),
	}, cfg.AllowedOrigins)

	listener, err := listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("realtime service starting", zap.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	onListening(listener.Addr().String())

	select {
	case err := <-serveErr:
		if err != nil {
			_ = realtime.Shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("realtime service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if refresher != nil {
		refresher.Stop()
	}
	if err := realtime.Shutdown(shutdownCtx); err != nil {
		logger.Warn("hub shutdown incomplete", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("realtime service exited")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
