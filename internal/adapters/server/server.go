// Package server composes the list HTTP API, live websocket and MCP transports into one process handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/adapters/server/httpapi"
	"github.com/hylla/insync/internal/adapters/server/liveapi"
	"github.com/hylla/insync/internal/adapters/server/mcpapi"
)

// defaultBindAddress defines the localhost-first serve default.
const defaultBindAddress = "127.0.0.1:8080"

// defaultShutdownTimeout bounds graceful shutdown time once context cancellation starts.
const defaultShutdownTimeout = 5 * time.Second

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	Resource      string
	MCPEndpoint   string
	LiveEndpoint  string
	ServerName    string
	ServerVersion string
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Lists  common.ListService
	Hub    *liveapi.Hub
	Logger *log.Logger
}

// NewHandler composes one root HTTP mux containing health, list API, live and MCP endpoints.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	normalizedCfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Lists == nil {
		return nil, Config{}, fmt.Errorf("list service dependency is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	hub := deps.Hub
	if hub == nil {
		hub = liveapi.NewHub()
	}

	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		deps.Lists,
	)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	apiHandler := httpapi.NewHandler(deps.Lists, logger)
	liveHandler := liveapi.NewHandler(hub, deps.Lists, logger)
	apiPrefix := "/" + normalizedCfg.Resource

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", nil)
	})
	mux.Handle("/readyz", readiness(deps.Lists, hub))
	mux.Handle(normalizedCfg.MCPEndpoint, mcpHandler)
	mux.Handle(normalizedCfg.LiveEndpoint+"/", http.StripPrefix(normalizedCfg.LiveEndpoint, liveHandler))
	mux.Handle(apiPrefix, http.StripPrefix(apiPrefix, apiHandler))
	mux.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, apiHandler))
	return logRequests(logger, mux), normalizedCfg, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, resolved, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	listener, err := net.Listen("tcp", resolved.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", resolved.HTTPBind, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	logger.Info("list server listening",
		"addr", listener.Addr().String(),
		"api", "/"+resolved.Resource,
		"live", resolved.LiveEndpoint,
		"mcp", resolved.MCPEndpoint,
	)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(listener) }()

	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", resolved.HTTPBind, err)
	case <-ctx.Done():
	}

	logger.Info("list server stopping", "addr", listener.Addr().String())
	drainCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(drainCtx)
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", resolved.HTTPBind, err)
	}
	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return fmt.Errorf("drain connections: %w", shutdownErr)
	}
	return nil
}

// normalizeConfig applies defaults and validates endpoint collisions.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}

	cfg.Resource = strings.Trim(strings.TrimSpace(cfg.Resource), "/")
	if cfg.Resource == "" {
		cfg.Resource = "api"
	}
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, "/mcp")
	cfg.LiveEndpoint = normalizeEndpoint(cfg.LiveEndpoint, "/ws/list")
	endpoints := map[string]string{
		"/" + cfg.Resource: "resource",
	}
	for name, path := range map[string]string{"mcp": cfg.MCPEndpoint, "live": cfg.LiveEndpoint} {
		if other, ok := endpoints[path]; ok {
			return Config{}, fmt.Errorf("%s and %s endpoints must differ", other, name)
		}
		endpoints[path] = name
	}
	switch "/" + cfg.Resource {
	case "/healthz", "/readyz":
		return Config{}, fmt.Errorf("resource %q collides with health endpoints", cfg.Resource)
	}

	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "insync"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	return cfg, nil
}

// normalizeEndpoint normalizes one endpoint path and applies fallback defaults.
func normalizeEndpoint(path string, fallback string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return fallback
	}
	return "/" + path
}

// readiness reports ready once the list store answers, with the live subscriber count.
func readiness(lists common.ListService, hub *liveapi.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summaries, err := lists.ListLists(r.Context())
		if err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", map[string]any{"error": err.Error()})
			return
		}
		subscribers := 0
		for _, list := range summaries {
			subscribers += hub.Subscribers(list.ID)
		}
		writeStatus(w, http.StatusOK, "ready", map[string]any{
			"lists":       len(summaries),
			"subscribers": subscribers,
		})
	})
}

func writeStatus(w http.ResponseWriter, code int, status string, extra map[string]any) {
	body := map[string]any{"status": status}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
