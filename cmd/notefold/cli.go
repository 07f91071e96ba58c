package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/notefold/notefold/internal/autosync"
	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/ops"
	"github.com/notefold/notefold/internal/syncer"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *ops.Deps, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "notefold",
		Usage:   "Local-first notes synced to GitHub",
		Version: Version,
		Commands: []*cli.Command{
			newCmd(deps),
			showCmd(deps),
			editCmd(deps),
			deleteCmd(deps),
			restoreCmd(deps),
			purgeCmd(deps),
			listCmd(deps),
			searchCmd(deps),
			syncCmd(deps),
			retryCmd(deps),
			statusCmd(deps),
			workspaceCmd(deps),
			exportCmd(deps, baseDir),
			importCmd(deps),
			daemonCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// workspaceFlag is shared by every command that resolves a workspace.
func workspaceFlag() cli.Flag {
	return &cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Workspace name (default: configured default)"}
}

// newCmd creates the new command.
func newCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a note (reads markdown from stdin)",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{Name: "template", Usage: "Mark the note as a template"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if content == "" {
				return outputError(errors.NewInvalidRequest("content is required"))
			}

			output, err := ops.Create(c.Context, deps, ops.CreateInput{
				Workspace: c.String("workspace"),
				Content:   content,
				Template:  c.Bool("template"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note by id, content included",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Get(c.Context, deps, ops.GetInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// editCmd creates the edit command.
func editCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace a note's content (reads markdown from stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{Name: "template", Usage: "Set or clear the template flag"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			input := ops.UpdateInput{
				ID:        c.Args().First(),
				Workspace: c.String("workspace"),
				Content:   content,
			}
			if c.IsSet("template") {
				template := c.Bool("template")
				input.Template = &template
			}

			output, err := ops.Update(c.Context, deps, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Move a note to the trash",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{workspaceFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, deps, ops.DeleteInput{
				ID:        c.Args().First(),
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Lift a note out of the trash",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{workspaceFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Restore(c.Context, deps, ops.RestoreInput{
				ID:        c.Args().First(),
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "Permanently delete a trashed note",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{workspaceFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Purge(c.Context, deps, ops.PurgeInput{
				ID:        c.Args().First(),
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, newest-updated first",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag prefix"},
			&cli.StringFlag{Name: "status", Usage: "Comma-separated sync statuses to filter by"},
			&cli.BoolFlag{Name: "trash", Usage: "List trashed notes instead of active ones"},
			&cli.BoolFlag{Name: "templates", Usage: "Include template notes"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "json", Usage: "Emit raw JSON instead of the table"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, deps, ops.ListInput{
				Workspace: c.String("workspace"),
				Tag:       c.String("tag"),
				Status:    splitCSV(c.String("status")),
				Trash:     c.Bool("trash"),
				Templates: c.Bool("templates"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Print(renderNoteList(output.Items))
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search active notes by title and content",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "json", Usage: "Emit raw JSON instead of the table"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, deps, ops.SearchInput{
				Workspace: c.String("workspace"),
				Query:     strings.Join(c.Args().Slice(), " "),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Print(renderNoteList(output.Items))
			return nil
		},
	}
}

// syncCmd creates the sync command.
func syncCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a full reconciliation against the remote repository",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Emit raw JSON instead of the summary"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Sync(c.Context, deps, ops.SyncInput{
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Println(renderSyncResult(output.Workspace, &output.Result))
			return nil
		},
	}
}

// retryCmd creates the retry command.
func retryCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "retry",
		Usage:     "Retry the upload of a note stuck in the error state",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{workspaceFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Retry(c.Context, deps, ops.RetryInput{
				ID:        c.Args().First(),
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show per-status note counts for a workspace",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{Name: "json", Usage: "Emit raw JSON instead of the summary"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, deps, ops.StatusInput{
				Workspace: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}
			fmt.Print(renderStatus(output))
			return nil
		},
	}
}

// workspaceCmd creates the workspace command group.
func workspaceCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Manage workspaces",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a workspace backed by a GitHub repository",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Required: true, Usage: "GitHub account owning the repository"},
					&cli.StringFlag{Name: "repo", Required: true, Usage: "Repository name"},
					&cli.StringFlag{Name: "branch", Value: "main", Usage: "Branch to sync against"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.WorkspaceAdd(c.Context, deps, ops.WorkspaceAddInput{
						Name:   c.Args().First(),
						Owner:  c.String("owner"),
						Repo:   c.String("repo"),
						Branch: c.String("branch"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "remove",
				Usage:     "Forget a workspace and delete its local notes",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					output, err := ops.WorkspaceRemove(c.Context, deps, ops.WorkspaceRemoveInput{
						Name: c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List registered workspaces",
				Action: func(c *cli.Context) error {
					output, err := ops.WorkspaceList(c.Context, deps)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(deps *ops.Deps, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a workspace to a JSONL file",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <base>/exports/<workspace>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, deps, ops.ExportInput{
				Path:      c.String("path"),
				Workspace: c.String("workspace"),
				BaseDir:   baseDir,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import notes from a JSONL file",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "skip", Usage: "Collision mode: skip|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, deps, ops.ImportInput{
				Path:      c.String("path"),
				Workspace: c.String("workspace"),
				Mode:      ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// daemonCmd creates the daemon command: periodic background sync across all
// workspaces until interrupted.
func daemonCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run periodic background sync until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Usage: "Sweep cadence (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if deps.Syncer == nil {
				return outputError(errors.NewInvalidRequest("sync is not configured (missing github token?)"))
			}

			interval := c.Duration("interval")
			if interval == 0 {
				interval = time.Duration(deps.Cfg.SyncIntervalSec) * time.Second
			}

			sched := autosync.New(deps.DB, deps.Syncer, deps.Log, autosync.Options{
				Interval:   interval,
				IdleWindow: time.Duration(deps.Cfg.IdleWindowSec) * time.Second,
				OnResult: func(workspace string, res *syncer.Result, err error) {
					if err != nil {
						fmt.Fprintf(os.Stderr, "sync %s: %v\n", workspace, err)
						return
					}
					if !res.Skipped {
						fmt.Println(renderSyncResult(workspace, res))
					}
				},
			})

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("notefold daemon: syncing every %s (ctrl-c to stop)\n", interval)
			return sched.Run(ctx)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nfErr, ok := err.(*errors.NotefoldError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nfErr.Code, nfErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// splitCSV splits a comma-separated string, trimming blanks.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
