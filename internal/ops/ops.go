// Package ops implements the local operations the CLI and MCP surfaces
// invoke: note CRUD, search, import/export, workspace management, and the
// sync entry points. Each operation is a function over Deps taking a typed
// input and returning a typed output.
package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/notefold/notefold/internal/config"
	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
	"github.com/notefold/notefold/internal/syncer"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Deps carries the shared dependencies operations run against. Syncer and
// Remote may be nil for local-only use (tests, offline commands); mutations
// then simply queue as pending/modified.
type Deps struct {
	DB     *sql.DB
	Cfg    *config.Config
	Log    *slog.Logger
	Syncer *syncer.Syncer
	Remote remote.Client

	// AwaitPush makes mutations block until the fast-path push settles.
	// The CLI sets it: the process exits right after the command, and a
	// dropped push goroutine would strand the note in syncing. Long-lived
	// surfaces (MCP, daemon) leave it off and let pushes run in the
	// background.
	AwaitPush bool
}

func (d *Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// workspace resolves a workspace handle, defaulting to the configured one.
func (d *Deps) workspace(ctx context.Context, name string) (*note.Workspace, error) {
	if name == "" {
		name = d.Cfg.DefaultWorkspace
	}
	return store.GetWorkspace(ctx, d.DB, name)
}

// push kicks the fast path for a mutated note and returns the row to
// render. Failures land on the note row either way. Background surfaces
// fire and forget and render the row as written; with AwaitPush set the
// call blocks until the push settles and returns the settled row.
func (d *Deps) push(ctx context.Context, ws *note.Workspace, n *note.Note) *note.Note {
	if d.Syncer == nil {
		return n
	}
	done := d.Syncer.PushNoteAsync(ctx, ws, n.ID)
	if !d.AwaitPush {
		return n
	}
	<-done
	if fresh, err := store.Get(ctx, d.DB, n.ID); err == nil {
		return fresh
	}
	return n
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// clampLimit applies the default and maximum page sizes.
func clampLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultListLimit, nil
	}
	if limit < 0 {
		return 0, errors.NewInvalidRequest("limit must not be negative")
	}
	if limit > MaxListLimit {
		return MaxListLimit, nil
	}
	return limit, nil
}

// NoteView is the note shape the surfaces render. Content is omitted from
// listings by default.
type NoteView struct {
	ID         string   `json:"id"`
	Workspace  string   `json:"workspace"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content,omitempty"`
	Tags       []string `json:"tags"`
	IsTemplate bool     `json:"is_template,omitempty"`
	Deleted    bool     `json:"deleted,omitempty"`
	DeletedAt  *int64   `json:"deleted_at,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
	SyncStatus string   `json:"sync_status"`
	SyncError  string   `json:"sync_error,omitempty"`
}

// viewOf projects a note into its surface shape.
func viewOf(n *note.Note, includeContent bool) NoteView {
	v := NoteView{
		ID:         n.ID,
		Workspace:  n.Workspace,
		Title:      n.Title,
		Tags:       n.Tags,
		IsTemplate: n.IsTemplate,
		Deleted:    n.Deleted,
		DeletedAt:  n.DeletedAt,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		SyncStatus: string(n.SyncStatus),
		SyncError:  n.SyncError,
	}
	if includeContent {
		v.Content = n.Content
	}
	return v
}

// dirtyStatus picks the queue status for a local mutation: pending while the
// note has never reached the remote, modified once it has.
func dirtyStatus(n *note.Note) note.SyncStatus {
	if n.RemoteFingerprint == "" {
		return note.StatusPending
	}
	return note.StatusModified
}

// requireNoteInWorkspace loads a note and checks it belongs to the resolved
// workspace, so an id from one workspace cannot be mutated through another.
func requireNoteInWorkspace(ctx context.Context, d *Deps, ws *note.Workspace, id string) (*note.Note, error) {
	n, err := store.Get(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}
	if n.Workspace != ws.Name {
		return nil, errors.NewNotFound(id)
	}
	return n, nil
}
