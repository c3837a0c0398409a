// Zefad is the Zefa personal-finance backend.
//
// It exposes a JSON HTTP API for accounts, transactions, and an
// LLM-backed chat assistant that can read and mutate the caller's
// financial data through a fixed tool registry. Configuration is loaded
// from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	zefad serve              Start the API server
//	zefad version            Print version and build information
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/agent"
	"github.com/zefa-finance/zefa-backend/internal/api"
	"github.com/zefa-finance/zefa-backend/internal/buildinfo"
	"github.com/zefa-finance/zefa-backend/internal/config"
	"github.com/zefa-finance/zefa-backend/internal/contextpack"
	"github.com/zefa-finance/zefa-backend/internal/creds"
	"github.com/zefa-finance/zefa-backend/internal/llm"
	"github.com/zefa-finance/zefa-backend/internal/store"
	"github.com/zefa-finance/zefa-backend/internal/summarizer"
	"github.com/zefa-finance/zefa-backend/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run]. This keeps os.Exit, os.Stdout, and
// os.Args out of the application logic so the startup-to-shutdown
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand. The flag package relies on package-level
// globals (flag.CommandLine), which makes it impossible to call run()
// concurrently from tests. Our argument surface is small enough that
// manual parsing is clearer than bringing in a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Zefad - Zefa personal finance backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: zefad [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./zefa.yaml, ~/.config/zefa/zefa.yaml, /etc/zefa/zefa.yaml")
	return nil
}

// runServe is the primary operating mode: loads config, opens the
// database, builds the chat gateway, starts the HTTP server, and blocks
// until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting zefad", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	// Reconfigure the logger now that we know the desired level. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// WAL lets chat turns write while API reads proceed; the busy
	// timeout covers the brief writer lock handoffs.
	dsn := cfg.DataDir + "/zefa.db?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	st, err := store.New(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	client, err := llm.New(cfg.AI.Provider, llm.Options{
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxOutputTokens,
		Temperature: 0.7,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	executor := tools.NewExecutor(st, logger)
	packs := contextpack.NewBuilder(st, cfg.AI.ContextPackTxLimit)
	credStore := creds.NewStore(0)
	gateway := agent.NewGateway(client, executor, packs, credStore, agent.Config{
		ToolsMode:           cfg.AI.ToolsMode,
		ToolResultsMaxChars: cfg.AI.ToolResultsMaxChars,
	}, logger)
	sum := summarizer.New(client, st, credStore, cfg.AI.MaxContextMessages, cfg.AI.SummaryTokenBudget, logger)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, st, gateway, sum, credStore, cfg.AI.MaxContextMessages, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// newLogger creates a structured text logger that renders the custom
// trace level by name.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}
