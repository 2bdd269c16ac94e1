// Command controlplane is the composition root: it wires C1-C10 into one
// process exposing the xDS (ADS/SDS), Access Log Service, External
// Processing, REST, and MCP surfaces spec.md section 6 names. Grounded on
// the teacher's cmd/controlplane/main.go for the overall shape (load
// config, build the one long-lived dependency graph, start every server
// under a shared cancellation context, wait on signals) generalized from
// a single xDS server + Docker watcher to the full store/builder/ops/xds
// graph.
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

	"github.com/flowmesh/controlplane/internal/accesslog"
	"github.com/flowmesh/controlplane/internal/api"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/bootstrap"
	"github.com/flowmesh/controlplane/internal/builder"
	"github.com/flowmesh/controlplane/internal/config"
	"github.com/flowmesh/controlplane/internal/extproc"
	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/mcp"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/flowmesh/controlplane/internal/schema"
	"github.com/flowmesh/controlplane/internal/store/postgres"
	"github.com/flowmesh/controlplane/internal/xds"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("config loaded",
		"xds_addr", cfg.XDSAddr,
		"als_addr", cfg.ALSAddr,
		"extproc_addr", cfg.ExtProcAddr,
		"api_addr", cfg.APIAddr,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Store (C2) ---
	st, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// --- Bootstrap (C10) ---
	if err := bootstrap.Run(ctx, st, cfg.BootstrapToken, log); err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	// --- Filter schema registry (C3, dynamic half) ---
	schemaRegistry := filters.NewSchemaRegistry()
	if err := filters.LoadSchemaDir(schemaRegistry, cfg.FilterSchemaDir); err != nil {
		log.Warn("filter schema directory not loaded, dynamic filter types unvalidated", "dir", cfg.FilterSchemaDir, "error", err)
	}
	converter := filters.NewConverter(schemaRegistry)

	// --- Resource builder (C5) + xDS delivery (C6) ---
	b := builder.New(st, converter)
	xdsServer := xds.NewServer(b, cfg, log)
	st.OnChange(xdsServer.OnStoreChange)

	if err := xdsServer.Seed(ctx); err != nil {
		log.Error("failed to seed initial xds snapshot", "error", err)
		os.Exit(1)
	}

	// --- Access-log learning pipeline (C7) ---
	aggregator := schema.NewAggregator(st.AggregatedSchemas())
	pool := accesslog.NewWorkerPool(cfg.AccessLogQueueSize, cfg.AccessLogWorkers, st.LearningSessions(), aggregator, log)
	go pool.Run(ctx)

	// --- Operations dispatcher (C9) shared by REST and MCP ---
	dispatcher := ops.NewDispatcher(st, schemaRegistry, log)

	// --- MCP tool surface (tool registry + dispatch in scope; JSON-RPC
	// transport framing is not, so the stock mcp-go StreamableHTTP
	// transport is mounted as-is rather than reimplemented). Bound to a
	// single superuser authz.Context for the process lifetime, mirroring
	// the original handler's per-connection fixed-scopes design recorded
	// in internal/mcp's doc comment. ---
	adminCtx := authz.NewContext(model.NewTokenID(), nil, nil, []string{authz.ScopeAdminAll})
	mcpSrv := mcp.NewServer(dispatcher, adminCtx, log)
	mcpHTTP := mcpserver.NewStreamableHTTPServer(mcpSrv)

	// --- REST management API (C9's HTTP entrypoint) ---
	apiServer := api.NewServer(dispatcher, st, log)

	topMux := http.NewServeMux()
	topMux.Handle("/mcp/", http.StripPrefix("/mcp", mcpHTTP))
	topMux.Handle("/", apiServer.Router())

	httpServer := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           topMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Shutdown ---
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 4)

	runServer := func(name string, fn func() error) {
		if err := fn(); err != nil {
			errCh <- fmt.Errorf("%s: %w", name, err)
			return
		}
		errCh <- nil
	}

	go func() {
		log.Info("xds server starting", "addr", cfg.XDSAddr)
		runServer("xds", func() error { return xdsServer.Serve(ctx, cfg.XDSAddr) })
	}()
	go func() {
		log.Info("access log server starting", "addr", cfg.ALSAddr)
		runServer("accesslog", func() error { return accesslog.Serve(ctx, cfg.ALSAddr, pool, log) })
	}()
	go func() {
		log.Info("ext_proc server starting", "addr", cfg.ExtProcAddr)
		runServer("extproc", func() error { return extproc.Serve(ctx, cfg.ExtProcAddr, pool, log) })
	}()
	go func() {
		log.Info("management API starting", "addr", cfg.APIAddr)
		runServer("api", func() error {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	for i := 0; i < 4; i++ {
		if err := <-errCh; err != nil && ctx.Err() == nil {
			log.Error("server exited unexpectedly", "error", err)
			cancel()
			os.Exit(1)
		}
	}
	log.Info("shutdown complete")
}
