package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/registrypulse/registrypulse/internal/alerts"
	"github.com/registrypulse/registrypulse/internal/api"
	"github.com/registrypulse/registrypulse/internal/config"
	"github.com/registrypulse/registrypulse/internal/health"
	"github.com/registrypulse/registrypulse/internal/registry"
	"github.com/registrypulse/registrypulse/internal/store"
	"github.com/registrypulse/registrypulse/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard UI static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("registrypulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"registry_url", cfg.Registry.BaseURL,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Registry.Auth.Mode,
		"poll_interval", cfg.Poll.Interval,
		"health_window", cfg.Poll.WindowMinutes,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := registry.New(cfg.Registry)
	if err != nil {
		slog.Error("failed to build registry client", "err", err)
		os.Exit(1)
	}

	// Listing cache with background TTL eviction.
	st := store.New(cfg.Cache.TTL)
	go st.Run(ctx)

	// Alerts engine — evaluates rules on every successful poll cycle.
	alertEngine := alerts.New(cfg.Alerts)

	// WebSocket hub — pushes the health view to UI clients. The poller's
	// OnUpdate hook kicks an immediate broadcast after every pair swap.
	var hub *ws.Hub

	poller, err := health.NewPoller(client, health.Options{
		WindowMinutes:   cfg.Poll.WindowMinutes,
		IncludeTimeline: cfg.Poll.IncludeTimeline,
		Interval:        cfg.Poll.Interval,
		OnUpdate: func(pair *health.Pair) {
			alertEngine.Evaluate(pair)
			if hub != nil {
				hub.Notify()
			}
		},
	})
	if err != nil {
		slog.Error("failed to build health poller", "err", err)
		os.Exit(1)
	}

	// Assign the hub before the poller starts so OnUpdate never sees nil.
	hub = ws.New(poller, 30*time.Second)
	go poller.Run(ctx)
	go hub.Run(ctx)

	// Live config reload: only the health window and timeline toggle are
	// applied without a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			if err := poller.SetWindow(next.Poll.WindowMinutes, next.Poll.IncludeTimeline); err != nil {
				slog.Warn("config reload: rejected health window", "err", err)
				return
			}
			slog.Info("config reload applied",
				"health_window", next.Poll.WindowMinutes,
				"timeline", next.Poll.IncludeTimeline,
			)
		})
		if err != nil && ctx.Err() == nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API + WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(client, client, poller, alertEngine, st))
	httpMux.Handle("/ws/stream", hub)

	// Optional: serve the pre-built dashboard UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("registrypulse-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
