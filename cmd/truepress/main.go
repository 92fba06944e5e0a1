package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rborin01/truepress/internal/ai"
	"github.com/rborin01/truepress/internal/config"
	"github.com/rborin01/truepress/internal/mcp"
	"github.com/rborin01/truepress/internal/rag"
	"github.com/rborin01/truepress/internal/store"
	"github.com/rborin01/truepress/internal/tier"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"ingest": true, "list": true, "delete": true,
	"search": true, "ask": true,
	"index": true, "prune": true, "snapshot": true,
	"export": true, "import": true, "wipe": true,
	"status": true, "web": true,
	"help": true,
}

// appEnv bundles the wired application for CLI and server modes.
type appEnv struct {
	cfg   *config.Config
	store *store.Store
	index *rag.Index // nil without an embedding service
	local *tier.Local
}

func (e *appEnv) close() {
	if e.local != nil {
		e.local.Close()
	}
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
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
   _____              ___
  |_   _| _ _  _ ___ | _ \_ _ ___ ______
    | || '_| || / -_)|  _/ '_/ -_|_-<_-<
    |_||_|  \_,_\___||_| |_| \___/__/__/

  Reconciling news intelligence store

  Usage: truepress <command> [options]
         truepress --help

  MCP server mode requires piped input.`)
}

// buildEnv wires the tiers, store, and semantic index from configuration.
func buildEnv(baseDir string) (*appEnv, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	local, err := tier.OpenLocal(baseDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open local tier: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		local.Close()
		return nil, err
	}
	log := logger.Sugar()

	var mirror store.Mirror
	if cfg.MirrorAddr != "" {
		mirror = tier.NewMirror(cfg.MirrorAddr, cfg.MirrorKey, cfg.MirrorCap)
	}

	var remote store.Remote
	if cfg.SupabaseURL != "" {
		r, err := tier.NewRemote(cfg.SupabaseURL, cfg.SupabaseKey, cfg.NewsTable, cfg.SnapshotsTable)
		if err != nil {
			log.Warnw("remote tier disabled", "error", err)
		} else {
			remote = r
		}
	}

	st := store.New(cfg, log, baseDir, local, mirror, remote)

	var index *rag.Index
	if cfg.APIKey() != "" {
		client, err := ai.NewClient(context.Background(), cfg)
		if err != nil {
			log.Warnw("semantic features disabled", "error", err)
		} else {
			index = rag.NewIndex(cfg, log, local, client, client)
		}
	}

	return &appEnv{cfg: cfg, store: st, index: index, local: local}, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any wiring
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".truepress")

	env, err := buildEnv(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer env.close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'truepress --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env.store, env.index, env.cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
