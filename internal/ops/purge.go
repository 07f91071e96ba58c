package ops

import (
	"context"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	ID        string // required
	Workspace string
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	ID string `json:"id"`
}

// Purge permanently deletes a trashed note locally and best-effort removes
// its trash file remotely. A missing remote copy is already the desired
// state; a remote failure does not resurrect the local row.
func Purge(ctx context.Context, d *Deps, input PurgeInput) (*PurgeOutput, error) {
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
		return nil, errors.NewInvalidRequest("only trashed notes can be purged; delete it first")
	}

	if err := store.Delete(ctx, d.DB, n.ID); err != nil {
		return nil, err
	}

	if d.Remote != nil && n.RemoteFingerprint != "" {
		rws := remote.Workspace{Owner: ws.Owner, Repo: ws.Repo, Branch: ws.Branch}
		trashPath := remote.NotePath(n.ID, true)
		if err := d.Remote.Delete(ctx, rws, trashPath, n.RemoteFingerprint); err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				d.logger().Warn("remote trash copy not removed", "note", n.ID, "error", err)
			}
		}
	}

	return &PurgeOutput{ID: n.ID}, nil
}
