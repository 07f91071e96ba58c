package ops

import (
	"context"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/store"
	"github.com/notefold/notefold/internal/syncer"
)

// SyncInput contains parameters for the Sync operation.
type SyncInput struct {
	Workspace string
	// KnownRoot, when set, enables the cheap skip against the given root
	// fingerprint.
	KnownRoot string
}

// SyncOutput contains the result of the Sync operation.
type SyncOutput struct {
	Workspace string        `json:"workspace"`
	Result    syncer.Result `json:"result"`
}

// Sync runs the full workspace reconciliation on demand.
func Sync(ctx context.Context, d *Deps, input SyncInput) (*SyncOutput, error) {
	if d.Syncer == nil {
		return nil, errors.NewInvalidRequest("sync is not configured (missing github token?)")
	}
	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}

	res, err := d.Syncer.SyncWorkspace(ctx, ws, input.KnownRoot)
	if err != nil {
		return nil, err
	}
	return &SyncOutput{Workspace: ws.Name, Result: *res}, nil
}

// RetryInput contains parameters for the Retry operation.
type RetryInput struct {
	ID        string // required
	Workspace string
}

// RetryOutput contains the result of the Retry operation.
type RetryOutput struct {
	Note NoteView `json:"note"`
}

// Retry re-runs the fast path for a note stuck in the error state and
// reports the outcome synchronously.
func Retry(ctx context.Context, d *Deps, input RetryInput) (*RetryOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if d.Syncer == nil {
		return nil, errors.NewInvalidRequest("sync is not configured (missing github token?)")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	if _, err := requireNoteInWorkspace(ctx, d, ws, input.ID); err != nil {
		return nil, err
	}

	if err := d.Syncer.RetryNote(ctx, ws, input.ID); err != nil {
		return nil, err
	}

	n, err := store.Get(ctx, d.DB, input.ID)
	if err != nil {
		return nil, err
	}
	return &RetryOutput{Note: viewOf(n, false)}, nil
}

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	Workspace string
}

// StatusOutput contains the result of the Status operation.
type StatusOutput struct {
	Workspace string         `json:"workspace"`
	Counts    map[string]int `json:"counts"`
	Dirty     int            `json:"dirty"`
	Syncing   bool           `json:"syncing"`
}

// Status reports per-status note counts for a workspace and whether a
// reconciliation is in flight.
func Status(ctx context.Context, d *Deps, input StatusInput) (*StatusOutput, error) {
	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}

	counts, err := store.CountByStatus(ctx, d.DB, ws.Name)
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{
		Workspace: ws.Name,
		Counts:    make(map[string]int, len(counts)),
	}
	for status, count := range counts {
		out.Counts[string(status)] = count
		if status.Dirty() {
			out.Dirty += count
		}
	}
	if d.Syncer != nil {
		out.Syncing = d.Syncer.Syncing()
	}
	return out, nil
}
