package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/notefold/notefold/internal/config"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/ops"
	"github.com/notefold/notefold/internal/store"
)

// setupTestDeps creates local-only deps over a temporary database with the
// default workspace registered.
func setupTestDeps(t *testing.T) (*ops.Deps, string) {
	t.Helper()

	baseDir := t.TempDir()
	db, err := store.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ws := &note.Workspace{Name: "default", Owner: "octocat", Repo: "notes", Branch: "main", CreatedAt: 1}
	if err := store.InsertWorkspace(context.Background(), db, ws); err != nil {
		t.Fatalf("failed to insert workspace: %v", err)
	}

	deps := &ops.Deps{
		DB:  db,
		Cfg: config.DefaultConfig(),
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return deps, baseDir
}

// runWithStdin runs an app command with content piped on stdin, capturing
// stdout.
func runWithStdin(t *testing.T, deps *ops.Deps, baseDir, stdin string, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	go func() {
		_, _ = stdinW.WriteString(stdin)
		stdinW.Close()
	}()

	app := newCLIApp(deps, baseDir)
	err := app.Run(args)

	os.Stdin = oldStdin
	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// runCommand runs an app command capturing stdout.
func runCommand(t *testing.T, deps *ops.Deps, baseDir string, args ...string) (string, error) {
	t.Helper()
	return runWithStdin(t, deps, baseDir, "", args...)
}

func TestCLINew(t *testing.T) {
	deps, baseDir := setupTestDeps(t)

	out, err := runWithStdin(t, deps, baseDir, "# From stdin\n\n#cli", "notefold", "new")
	if err != nil {
		t.Fatalf("new command failed: %v", err)
	}

	var output ops.CreateOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Note.ID == "" {
		t.Error("expected non-empty id")
	}
	if output.Note.Title != "From stdin" {
		t.Errorf("title = %q, want From stdin", output.Note.Title)
	}
}

func TestCLIShowEditDelete(t *testing.T) {
	deps, baseDir := setupTestDeps(t)
	ctx := context.Background()

	created, err := ops.Create(ctx, deps, ops.CreateInput{Content: "# Original"})
	if err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	id := created.Note.ID

	t.Run("show", func(t *testing.T) {
		out, err := runCommand(t, deps, baseDir, "notefold", "show", id)
		if err != nil {
			t.Fatalf("show command failed: %v", err)
		}
		var output ops.GetOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Note.Content != "# Original" {
			t.Errorf("content = %q", output.Note.Content)
		}
	})

	t.Run("edit", func(t *testing.T) {
		out, err := runWithStdin(t, deps, baseDir, "# Renamed", "notefold", "edit", id)
		if err != nil {
			t.Fatalf("edit command failed: %v", err)
		}
		var output ops.UpdateOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Note.Title != "Renamed" {
			t.Errorf("title = %q, want Renamed", output.Note.Title)
		}
	})

	t.Run("delete and restore", func(t *testing.T) {
		out, err := runCommand(t, deps, baseDir, "notefold", "delete", id)
		if err != nil {
			t.Fatalf("delete command failed: %v", err)
		}
		var delOutput ops.DeleteOutput
		if err := json.Unmarshal([]byte(out), &delOutput); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if delOutput.DeletedAt == 0 {
			t.Error("expected deleted_at timestamp")
		}

		if _, err := runCommand(t, deps, baseDir, "notefold", "restore", id); err != nil {
			t.Fatalf("restore command failed: %v", err)
		}
	})
}

func TestCLIList(t *testing.T) {
	deps, baseDir := setupTestDeps(t)
	ctx := context.Background()

	for _, content := range []string{"# First", "# Second", "# Third"} {
		if _, err := ops.Create(ctx, deps, ops.CreateInput{Content: content}); err != nil {
			t.Fatalf("failed to create test note: %v", err)
		}
	}

	t.Run("json output", func(t *testing.T) {
		out, err := runCommand(t, deps, baseDir, "notefold", "list", "--json")
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}
		var output ops.ListOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(output.Items) != 3 {
			t.Errorf("got %d items, want 3", len(output.Items))
		}
	})

	t.Run("table output lists titles", func(t *testing.T) {
		out, err := runCommand(t, deps, baseDir, "notefold", "list")
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}
		for _, title := range []string{"First", "Second", "Third"} {
			if !bytes.Contains([]byte(out), []byte(title)) {
				t.Errorf("table output missing %q:\n%s", title, out)
			}
		}
	})

	t.Run("limit flag", func(t *testing.T) {
		out, err := runCommand(t, deps, baseDir, "notefold", "list", "--json", "--limit", "2")
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}
		var output ops.ListOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(output.Items) != 2 {
			t.Errorf("got %d items, want 2", len(output.Items))
		}
		if !output.Pagination.HasMore {
			t.Error("expected has_more=true")
		}
	})
}

func TestCLISearch(t *testing.T) {
	deps, baseDir := setupTestDeps(t)
	ctx := context.Background()

	if _, err := ops.Create(ctx, deps, ops.CreateInput{Content: "# Groceries\n\nmilk and eggs"}); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}

	// Multi-word queries come in as separate args.
	out, err := runCommand(t, deps, baseDir, "notefold", "search", "--json", "milk", "and")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}
	var output ops.SearchOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(output.Items) != 1 {
		t.Errorf("got %d items, want 1", len(output.Items))
	}
}

func TestCLIWorkspace(t *testing.T) {
	deps, baseDir := setupTestDeps(t)

	// urfave stops flag parsing at the first positional, so flags go first.
	out, err := runCommand(t, deps, baseDir, "notefold", "workspace", "add", "--owner", "octocat", "--repo", "work-notes", "work")
	if err != nil {
		t.Fatalf("workspace add failed: %v", err)
	}
	var added ops.WorkspaceAddOutput
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if added.Workspace.Branch != "main" {
		t.Errorf("branch = %q, want main", added.Workspace.Branch)
	}

	out, err = runCommand(t, deps, baseDir, "notefold", "workspace", "list")
	if err != nil {
		t.Fatalf("workspace list failed: %v", err)
	}
	var listed ops.WorkspaceListOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(listed.Workspaces) != 2 {
		t.Errorf("got %d workspaces, want 2", len(listed.Workspaces))
	}

	if _, err := runCommand(t, deps, baseDir, "notefold", "workspace", "remove", "work"); err != nil {
		t.Fatalf("workspace remove failed: %v", err)
	}
}

func TestCLIExportImport(t *testing.T) {
	deps, baseDir := setupTestDeps(t)
	ctx := context.Background()

	for _, content := range []string{"# One", "# Two"} {
		if _, err := ops.Create(ctx, deps, ops.CreateInput{Content: content}); err != nil {
			t.Fatalf("failed to create test note: %v", err)
		}
	}

	exportPath := filepath.Join(t.TempDir(), "export.jsonl")
	out, err := runCommand(t, deps, baseDir, "notefold", "export", "--path", exportPath)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	var exported ops.ExportOutput
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if exported.Exported != 2 {
		t.Errorf("exported = %d, want 2", exported.Exported)
	}

	deps2, baseDir2 := setupTestDeps(t)
	out, err = runCommand(t, deps2, baseDir2, "notefold", "import", "--path", exportPath)
	if err != nil {
		t.Fatalf("import command failed: %v", err)
	}
	var imported ops.ImportOutput
	if err := json.Unmarshal([]byte(out), &imported); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if imported.Imported != 2 {
		t.Errorf("imported = %d, want 2", imported.Imported)
	}
}

func TestCLIErrorHandling(t *testing.T) {
	deps, baseDir := setupTestDeps(t)

	t.Run("show not found returns error", func(t *testing.T) {
		if _, err := runCommand(t, deps, baseDir, "notefold", "show", "missing"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("sync without engine returns error", func(t *testing.T) {
		if _, err := runCommand(t, deps, baseDir, "notefold", "sync"); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("new without stdin returns error", func(t *testing.T) {
		// Empty piped stdin still counts as piped, but yields no content.
		if _, err := runWithStdin(t, deps, baseDir, "", "notefold", "new"); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"notefold"}, false},
		{"new command", []string{"notefold", "new"}, true},
		{"list command", []string{"notefold", "list"}, true},
		{"workspace command", []string{"notefold", "workspace"}, true},
		{"daemon command", []string{"notefold", "daemon"}, true},
		{"help flag", []string{"notefold", "--help"}, true},
		{"version flag", []string{"notefold", "--version"}, true},
		{"short help flag", []string{"notefold", "-h"}, true},
		{"short version flag", []string{"notefold", "-v"}, true},
		{"unknown arg defaults to MCP", []string{"notefold", "--unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"notefold"}, false},
		{"help flag", []string{"notefold", "--help"}, true},
		{"short help flag", []string{"notefold", "-h"}, true},
		{"version flag", []string{"notefold", "--version"}, true},
		{"short version flag", []string{"notefold", "-v"}, true},
		{"help subcommand", []string{"notefold", "help"}, true},
		{"new command is not help", []string{"notefold", "new"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single value", "pending", []string{"pending"}},
		{"multiple values", "pending,modified,error", []string{"pending", "modified", "error"}},
		{"values with spaces", " pending , error ", []string{"pending", "error"}},
		{"empty parts filtered", "pending,,error,", []string{"pending", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitCSV(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d parts, got %d", len(tt.expected), len(result))
				return
			}
			for i, part := range result {
				if part != tt.expected[i] {
					t.Errorf("expected part[%d]=%q, got %q", i, tt.expected[i], part)
				}
			}
		})
	}
}
