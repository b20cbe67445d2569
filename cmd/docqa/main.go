// CLAUDE:SUMMARY CLI entry point for docqa — PDF question answering over HTTP, MCP stdio, and one-shot modes.
// Command docqa is the PDF question-answering service.
//
// Usage:
//
//	docqa -config docqa.yaml               # run with config file
//	docqa -db docqa.db                     # run with defaults
//	docqa -db docqa.db -ask "question"     # answer and exit
//	docqa -db docqa.db -stats              # show stats and exit
//	docqa -db docqa.db -mcp                # serve MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docqa"
	"github.com/hazyhaar/docqa/internal/qa"
	"github.com/hazyhaar/docqa/shield"
)

func main() {
	configPath := flag.String("config", "", "path to docqa.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	askQuery := flag.String("ask", "", "question to answer (exit after the answer)")
	showStats := flag.Bool("stats", false, "show stats and exit")
	mcpStdio := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *listenAddr, *askQuery, *showStats, *mcpStdio); err != nil {
		logger.Error("docqa: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, listenAddr, askQuery string, showStats, mcpStdio bool) error {
	cfg, err := resolveConfig(configPath, dbPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	svc, err := docqa.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc.Close(ctx)
	}()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	// One-shot: answer a question.
	if askQuery != "" {
		ans, err := svc.Ask(ctx, qa.Request{Query: askQuery})
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	// One-shot: stats.
	if showStats {
		stats, err := svc.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	// MCP over stdio.
	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{Name: "docqa", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		logger.Info("docqa: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	// Daemon: HTTP API.
	r := chi.NewRouter()
	r.Use(shield.RequestID(logger))
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxJSONBody(1 << 20))
	svc.RegisterHTTP(r)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("docqa: listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("docqa: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func resolveConfig(configPath, dbPath string) (*docqa.Config, error) {
	if configPath != "" {
		return docqa.LoadConfigFile(configPath)
	}

	cfg := &docqa.Config{}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "usage: docqa -config <file> | -db <path> [-ask <question>] [-stats] [-mcp]")
		os.Exit(1)
	}
	return cfg, nil
}
