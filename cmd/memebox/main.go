package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/db"
	"github.com/hpungsan/memebox/internal/logger"
	"github.com/hpungsan/memebox/internal/mcp"
	"github.com/hpungsan/memebox/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"compose": true, "list": true, "show": true, "delete": true,
	"duplicate": true, "rename": true, "export": true, "history": true,
	"recent": true, "backup": true, "restore": true, "clear": true,
	"serve": true, "mcp": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __ ___   ___ _ __ ___   ___| |__   _____  __
  | '_ ' _ \ / _ \ '_ ' _ \ / _ \ '_ \ / _ \ \/ /
  | | | | | |  __/ | | | | |  __/ |_) | (_) >  <
  |_| |_| |_|\___|_| |_| |_|\___|_.__/ \___/_/\_\

  Local meme store

  Usage: memebox <command> [options]
         memebox --help

  MCP server mode requires piped input.`)
}

// openStore builds the store over the snapshot table and loads the durable state.
func openStore(ctx context.Context, database *sql.DB, cfg *config.Config, log zerolog.Logger) (*store.Store, error) {
	st := store.New(
		store.WithPersister(db.NewSnapshotPersister(database)),
		store.WithStorageKey(cfg.StorageKey),
		store.WithLimits(store.Limits{
			RecentImages:  cfg.RecentImagesMax,
			ExportHistory: cfg.ExportHistoryMax,
		}),
		store.WithLogger(log.With().Str("component", "store").Logger()),
	)
	if err := st.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", cfg.StorageKey, err)
	}
	return st, nil
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, zerolog.Nop())
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, config.DirName)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New("memebox", cfg.LogLevel)

	database, err := db.Init(baseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	ctx := context.Background()
	st, err := openStore(ctx, database, cfg, log)
	if err != nil {
		return err
	}
	// Retries a write that failed during the run; no-op otherwise.
	defer func() {
		if err := st.Flush(ctx); err != nil {
			log.Error().Err(err).Stack().Msg("final flush failed")
		}
	}()

	if isCLIMode() {
		return newCLIApp(st, cfg, log).Run(os.Args)
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		return fmt.Errorf("unknown command %q\nRun 'memebox --help' for usage", os.Args[1])
	}

	log.Debug().Str("version", Version).Msg("starting mcp server")
	return mcp.Run(st, cfg, log, Version)
}
