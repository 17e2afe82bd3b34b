package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/synctune/server/internal/controller"
	"github.com/synctune/server/internal/repository/connection/inmemory"
	roomStore "github.com/synctune/server/internal/repository/room"
	snapshotFile "github.com/synctune/server/internal/repository/snapshot/file"
	snapshotRedis "github.com/synctune/server/internal/repository/snapshot/redis"
	"github.com/synctune/server/internal/repository/wssender"
	"github.com/synctune/server/internal/service/room"
	"github.com/synctune/server/pkg/ctxlogger"
	"github.com/synctune/server/pkg/redisclient"
	"github.com/synctune/server/pkg/ytresolver"
)

const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

// rooms in the redis backend outlive their last write by this much
const redisRoomExp = 24 * 14 * time.Hour

type AppConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	LogLevel         string `json:"log_level"`
	Storage          string `json:"storage"`
	SnapshotDir      string `json:"snapshot_dir"`
	SnapshotInterval int    `json:"snapshot_interval_seconds"`
	RedisPort        int    `json:"redis_port"`
	RedisHost        string `json:"redis_host"`
	RedisPassword    string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Storage != StorageFile && cfg.Storage != StorageRedis {
		return fmt.Errorf("storage must be %q or %q", StorageFile, StorageRedis)
	}
	if cfg.Storage == StorageFile && cfg.SnapshotDir == "" {
		return fmt.Errorf("snapshot dir must be set for file storage")
	}
	if cfg.SnapshotInterval < 0 {
		return fmt.Errorf("snapshot interval must not be negative")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)
	slog.SetDefault(logger)

	var snap roomStore.Snapshotter
	switch cfg.Storage {
	case StorageRedis:
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		snap = snapshotRedis.NewRepo(rc, redisRoomExp)
	default:
		fileRepo, err := snapshotFile.NewRepo(cfg.SnapshotDir)
		if err != nil {
			return fmt.Errorf("failed to create file snapshot repo: %w", err)
		}

		snap = fileRepo
	}

	store, err := roomStore.NewStore(ctx, snap, time.Duration(cfg.SnapshotInterval)*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create room store: %w", err)
	}
	defer store.Close(context.Background())

	registry := inmemory.NewRepo()
	sender := wssender.NewRepo()
	resolver := ytresolver.New()
	roomService := room.NewService(store, registry, sender, resolver)
	controller := controller.NewController(roomService, sender, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	slog.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
