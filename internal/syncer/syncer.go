// Package syncer reconciles the local note store with the remote
// repository. It has two entry points: the fast path (PushNote, one note
// immediately after a local mutation) and the slow path (SyncWorkspace, the
// full three-phase reconciliation).
package syncer

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
)

// conflictHint is the message stored on a note when the fast path runs into
// a fingerprint mismatch it cannot resolve alone.
const conflictHint = "conflict — run full sync"

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	// PullBatchSize bounds how many blobs one FetchBlobs call requests.
	PullBatchSize int

	// PushConcurrency bounds how many notes phase 3 uploads at once.
	PushConcurrency int
}

const (
	defaultPullBatchSize   = 50
	defaultPushConcurrency = 4
)

// Syncer drives both sync paths over one local database and one remote
// transport.
type Syncer struct {
	db        *sql.DB
	remote    remote.Client
	log       *slog.Logger
	batchSize int
	pushLimit int

	// syncing is the process-wide "reconciliation in progress" flag.
	// Single writer (the slow path); read by the scheduler and status
	// surfaces.
	syncing atomic.Bool
}

// New builds a Syncer. A nil logger falls back to slog.Default().
func New(db *sql.DB, client remote.Client, log *slog.Logger, opts Options) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	if opts.PullBatchSize <= 0 {
		opts.PullBatchSize = defaultPullBatchSize
	}
	if opts.PushConcurrency <= 0 {
		opts.PushConcurrency = defaultPushConcurrency
	}
	return &Syncer{
		db:        db,
		remote:    client,
		log:       log,
		batchSize: opts.PullBatchSize,
		pushLimit: opts.PushConcurrency,
	}
}

// Syncing reports whether a slow-path reconciliation is in flight.
func (s *Syncer) Syncing() bool {
	return s.syncing.Load()
}

// remoteWorkspace maps a workspace record to its transport coordinates.
func remoteWorkspace(ws *note.Workspace) remote.Workspace {
	return remote.Workspace{Owner: ws.Owner, Repo: ws.Repo, Branch: ws.Branch}
}

// recordFailure persists a failed upload on the note row. Conflicts get the
// steer-to-full-sync hint instead of the raw transport message.
func (s *Syncer) recordFailure(ctx context.Context, id string, pushErr error) {
	msg := pushErr.Error()
	if errors.Is(pushErr, errors.ErrConflict) {
		msg = conflictHint
	}
	if err := store.SetSyncError(ctx, s.db, id, msg); err != nil {
		s.log.Error("failed to record sync error", "note", id, "error", err)
	}
}

// uploadActive writes n's serialized form to the active path with
// create-or-update semantics: the known prior fingerprint is offered first,
// and a mismatch or missing path falls back to the path's actual state.
func (s *Syncer) uploadActive(ctx context.Context, rws remote.Workspace, n *note.Note, text string) (string, error) {
	path := remote.NotePath(n.ID, false)
	sha, err := s.remote.Upload(ctx, rws, path, text, n.RemoteFingerprint)
	if err == nil {
		return sha, nil
	}
	if !errors.Is(err, errors.ErrConflict) && !errors.Is(err, errors.ErrNotFound) {
		return "", err
	}

	// Someone else wrote first, or the known fingerprint referred to a
	// trash-path version being restored. Resolve against the path's
	// current state.
	current, statErr := s.remote.Stat(ctx, rws, path)
	if statErr != nil {
		if errors.Is(statErr, errors.ErrNotFound) {
			return s.remote.Upload(ctx, rws, path, text, "")
		}
		return "", statErr
	}
	return s.remote.Upload(ctx, rws, path, text, current)
}

// uploadTrash writes n's serialized form to the trash path: blind create
// first, falling back to an update at the path's current fingerprint when
// something is already there.
func (s *Syncer) uploadTrash(ctx context.Context, rws remote.Workspace, n *note.Note, text string) (string, error) {
	path := remote.NotePath(n.ID, true)
	sha, err := s.remote.Upload(ctx, rws, path, text, "")
	if err == nil {
		return sha, nil
	}
	if !errors.Is(err, errors.ErrConflict) {
		return "", err
	}

	existing, statErr := s.remote.Stat(ctx, rws, path)
	if statErr != nil {
		return "", statErr
	}
	return s.remote.Upload(ctx, rws, path, text, existing)
}

// removeStale best-effort deletes the file at path. Not-found means the
// desired state already holds; a stale fingerprint is refreshed once.
// An empty sha means the caller has no fingerprint, so the path's current
// state is fetched first.
func (s *Syncer) removeStale(ctx context.Context, rws remote.Workspace, path, sha string) error {
	if sha == "" {
		var err error
		sha, err = s.remote.Stat(ctx, rws, path)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil
			}
			return err
		}
	}

	err := s.remote.Delete(ctx, rws, path, sha)
	if err == nil || errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if errors.Is(err, errors.ErrConflict) {
		fresh, statErr := s.remote.Stat(ctx, rws, path)
		if statErr != nil {
			if errors.Is(statErr, errors.ErrNotFound) {
				return nil
			}
			return statErr
		}
		err = s.remote.Delete(ctx, rws, path, fresh)
		if err == nil || errors.Is(err, errors.ErrNotFound) {
			return nil
		}
	}
	return err
}
