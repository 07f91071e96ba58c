package syncer

import (
	"context"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
)

// PushNote uploads one note's current local state to the remote store.
// It is a no-op when the note is gone (removed concurrently) or already
// synced, which makes redundant invocations harmless. Failures are recorded
// on the note row and also returned, so background callers may ignore the
// result while awaiting callers get immediate feedback.
func (s *Syncer) PushNote(ctx context.Context, ws *note.Workspace, id string) error {
	n, err := store.Get(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	if n.SyncStatus == note.StatusSynced {
		return nil
	}

	if err := store.SetSyncStatus(ctx, s.db, id, note.StatusSyncing); err != nil {
		return err
	}

	if err := s.pushCurrent(ctx, ws, n); err != nil {
		s.recordFailure(context.WithoutCancel(ctx), id, err)
		return err
	}
	return nil
}

// PushNoteAsync runs PushNote on a background goroutine detached from the
// caller's cancellation and returns a buffered result channel the caller
// may ignore. The worker itself persists any failure on the note row, so a
// dropped channel never hides an error.
func (s *Syncer) PushNoteAsync(ctx context.Context, ws *note.Workspace, id string) <-chan error {
	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		err := s.PushNote(bg, ws, id)
		if err != nil {
			s.log.Warn("background push failed", "note", id, "error", err)
		}
		done <- err
	}()
	return done
}

// RetryNote re-runs the fast path for a note stuck in the error state. It
// is the awaited retry entry point: the push error is returned to the
// caller for immediate feedback.
func (s *Syncer) RetryNote(ctx context.Context, ws *note.Workspace, id string) error {
	n, err := store.Get(ctx, s.db, id)
	if err != nil {
		return err
	}
	if n.SyncStatus != note.StatusError {
		return errors.NewInvalidRequest("note is not in error state: " + id)
	}

	status := note.StatusPending
	if n.RemoteFingerprint != "" {
		status = note.StatusModified
	}
	if err := store.SetSyncStatus(ctx, s.db, id, status); err != nil {
		return err
	}
	return s.PushNote(ctx, ws, id)
}

// pushCurrent serializes the note and runs the branch matching its
// tombstone state. On success the note settles as synced at the fingerprint
// the remote reported.
func (s *Syncer) pushCurrent(ctx context.Context, ws *note.Workspace, n *note.Note) error {
	rws := remoteWorkspace(ws)
	text, err := note.Serialize(n)
	if err != nil {
		return errors.NewInternal(err)
	}

	if n.Deleted {
		return s.pushTrashed(ctx, rws, n, text)
	}
	return s.pushActive(ctx, rws, n, text)
}

// pushTrashed uploads to the trash path, then best-effort removes the
// active copy using the last-known active fingerprint.
func (s *Syncer) pushTrashed(ctx context.Context, rws remote.Workspace, n *note.Note, text string) error {
	sha, err := s.uploadTrash(ctx, rws, n, text)
	if err != nil {
		return err
	}

	activePath := remote.NotePath(n.ID, false)
	if cleanupErr := s.removeStale(ctx, rws, activePath, n.RemoteFingerprint); cleanupErr != nil {
		// Best effort: the trash copy is in place, so a leftover active
		// copy is a cosmetic duplicate the next full sync removes.
		s.log.Warn("stale active copy not removed", "note", n.ID, "error", cleanupErr)
	}

	return store.SetSynced(ctx, s.db, n.ID, sha)
}

// pushActive uploads to the active path (create, update, or restore), then
// best-effort removes any stale trash copy.
func (s *Syncer) pushActive(ctx context.Context, rws remote.Workspace, n *note.Note, text string) error {
	sha, err := s.uploadActive(ctx, rws, n, text)
	if err != nil {
		return err
	}

	trashPath := remote.NotePath(n.ID, true)
	if cleanupErr := s.removeStale(ctx, rws, trashPath, ""); cleanupErr != nil {
		s.log.Warn("stale trash copy not removed", "note", n.ID, "error", cleanupErr)
	}

	return store.SetSynced(ctx, s.db, n.ID, sha)
}
