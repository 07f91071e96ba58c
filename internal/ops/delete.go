package ops

import (
	"context"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/store"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID        string // required
	Workspace string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deleted_at"`
}

// Delete tombstones a note. The remote copy migrates to the trash folder
// through the fast path kicked here, or the next full sync.
func Delete(ctx context.Context, d *Deps, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	n, err := requireNoteInWorkspace(ctx, d, ws, input.ID)
	if err != nil {
		return nil, err
	}
	if n.Deleted {
		return nil, errors.NewInvalidRequest("note is already in trash: " + input.ID)
	}

	now := time.Now().UnixMilli()
	if err := store.SetDeleted(ctx, d.DB, n.ID, true, &now, now, dirtyStatus(n)); err != nil {
		return nil, err
	}

	d.push(ctx, ws, n)

	return &DeleteOutput{ID: n.ID, DeletedAt: now}, nil
}

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	ID        string // required
	Workspace string
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	ID string `json:"id"`
}

// Restore lifts a note out of the trash. The remote copy migrates back to
// the active folder through the fast path kicked here, or the next full
// sync.
func Restore(ctx context.Context, d *Deps, input RestoreInput) (*RestoreOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	n, err := requireNoteInWorkspace(ctx, d, ws, input.ID)
	if err != nil {
		return nil, err
	}
	if !n.Deleted {
		return nil, errors.NewInvalidRequest("note is not in trash: " + input.ID)
	}

	now := time.Now().UnixMilli()
	if err := store.SetDeleted(ctx, d.DB, n.ID, false, nil, now, dirtyStatus(n)); err != nil {
		return nil, err
	}

	d.push(ctx, ws, n)

	return &RestoreOutput{ID: n.ID}, nil
}
