package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/notefold/notefold/internal/config"
	"github.com/notefold/notefold/internal/logging"
	"github.com/notefold/notefold/internal/mcp"
	"github.com/notefold/notefold/internal/ops"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/remote/github"
	"github.com/notefold/notefold/internal/store"
	"github.com/notefold/notefold/internal/syncer"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"new": true, "show": true, "edit": true, "delete": true,
	"restore": true, "purge": true, "list": true, "search": true,
	"sync": true, "retry": true, "status": true, "workspace": true,
	"export": true, "import": true, "daemon": true,
	"help": true,
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
   _  _     _       __     _    _
  | \| |___| |_ ___/ _|___| |__| |
  | .  / _ \  _/ -_)  _/ _ \ / _  |
  |_|\_\___/\__\___|_| \___/_\__,_|

  Local-first notes, synced to GitHub

  Usage: notefold <command> [options]
         notefold --help

  MCP server mode requires piped input.`)
}

// buildDeps assembles the shared dependency set: the store, the GitHub
// client (when a token is configured), and the sync engine on top. Without
// a token everything still works locally; mutations queue as dirty.
func buildDeps(baseDir string, cfg *config.Config, log *slog.Logger) (*ops.Deps, error) {
	db, err := store.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}

	deps := &ops.Deps{DB: db, Cfg: cfg, Log: log}

	if cfg.GitHubToken != "" {
		var gopts []github.Option
		if cfg.GitHubAPIURL != "" {
			gopts = append(gopts, github.WithAPIURL(cfg.GitHubAPIURL))
		}
		if cfg.GitHubGraphQLURL != "" {
			gopts = append(gopts, github.WithGraphQLURL(cfg.GitHubGraphQLURL))
		}
		var client remote.Client = github.NewClient(cfg.GitHubToken, log, gopts...)
		deps.Remote = client
		deps.Syncer = syncer.New(db, client, log, syncer.Options{
			PullBatchSize:   cfg.PullBatchSize,
			PushConcurrency: cfg.PushConcurrency,
		})
	}
	return deps, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before store init (no store needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, "")
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
	baseDir := filepath.Join(homeDir, ".notefold")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "error: unknown disabled_tools entries: %v\n", unknown)
		os.Exit(1)
	}

	deps, err := buildDeps(baseDir, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		// The process exits right after the command, so fast-path pushes
		// must settle before then.
		deps.AwaitPush = true
		app := newCLIApp(deps, baseDir)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'notefold --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(deps, baseDir, Version, cfg.DisabledTools); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
