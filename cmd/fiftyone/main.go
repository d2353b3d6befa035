package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backyonatan-alt/fiftyone/internal/api"
	"github.com/backyonatan-alt/fiftyone/internal/cache"
	"github.com/backyonatan-alt/fiftyone/internal/config"
	"github.com/backyonatan-alt/fiftyone/internal/configflow"
	"github.com/backyonatan-alt/fiftyone/internal/coordinator"
	"github.com/backyonatan-alt/fiftyone/internal/metrics"
	"github.com/backyonatan-alt/fiftyone/internal/publish"
	"github.com/backyonatan-alt/fiftyone/internal/registry"
	"github.com/backyonatan-alt/fiftyone/internal/server"
	"github.com/backyonatan-alt/fiftyone/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("FIFTYONE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Logger.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	resources, err := coordinator.ResourcesByKey(cfg.Coordinator.Resources)
	if err != nil {
		slog.Error("invalid coordinator resources", "error", err)
		os.Exit(1)
	}

	m := metrics.New(cfg.Metrics.Enabled)
	responses := cache.NewResponses(cfg.Cache.Size, cfg.Cache.TTL, slog.Default())

	var publisher *publish.Publisher
	if cfg.MQTT.Broker != "" {
		publisher, err = publish.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, slog.Default())
		if err != nil {
			// Non-fatal: entities are still served over HTTP
			slog.Error("mqtt publishing disabled", "error", err)
		} else {
			defer publisher.Close()
		}
	}

	var reg *registry.Registry
	reg = registry.New(ctx, registry.Options{
		Interval:      cfg.Coordinator.Interval,
		Resources:     resources,
		ClientOptions: []api.Option{api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}), api.WithImageTimeout(cfg.API.ImageTimeout)},
		MaxHeight:     cfg.API.MaxHeight,
		APIObserver:   m,
		Observer:      m,
		OnUpdate: func(rt *registry.Runtime, err error) {
			responses.Clear()
			m.SetEntries(reg.Len())
			if publisher == nil {
				return
			}
			if perr := publisher.Publish(rt.Entities.States()); perr != nil {
				slog.Warn("mqtt publish failed", "entry", rt.Entry.ID, "error", perr)
			}
		},
	})
	defer reg.Close()

	flow := configflow.New(st, reg)
	restoreEntries(ctx, st, reg, flow, cfg.API.URL)

	srv := server.New(cfg.Server, server.Deps{
		Registry:  reg,
		Flow:      flow,
		Store:     st,
		Responses: responses,
		Metrics:   m,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.API.ImageTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// openStore picks Postgres when a database URL is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	if cfg.URL == "" {
		slog.Warn("no database configured, entries are kept in memory")
		return store.NewMemory(), func() {}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := store.Open(pingCtx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

// restoreEntries sets up every persisted entry, then runs the user step for
// bootstrapURL when it is set.
func restoreEntries(ctx context.Context, st store.Store, reg *registry.Registry, flow *configflow.Flow, bootstrapURL string) {
	entries, err := st.List(ctx)
	if err != nil {
		slog.Error("failed to list entries", "error", err)
		return
	}
	for _, e := range entries {
		if _, err := reg.Setup(ctx, e); err != nil {
			// Non-fatal: the entry stays persisted and is retried on the next start
			slog.Error("entry setup failed", "entry", e.ID, "error", err)
		}
	}

	if bootstrapURL == "" {
		return
	}
	entry, err := flow.User(ctx, configflow.UserInput{APIURL: bootstrapURL})
	switch {
	case err == nil:
		slog.Info("bootstrap entry created", "entry", entry.ID)
	case errors.Is(err, configflow.ErrAlreadyConfigured):
		slog.Debug("bootstrap entry already configured", "url", bootstrapURL)
	default:
		slog.Error("bootstrap entry failed", "url", bootstrapURL, "error", err)
	}
}
