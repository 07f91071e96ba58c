package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
)

// Result reports what one reconciliation run changed. Counts cover only
// state changed by this run, not a priori pending work.
type Result struct {
	Uploaded   int `json:"uploaded"`
	Downloaded int `json:"downloaded"`
	Pruned     int `json:"pruned"`
	Conflicts  int `json:"conflicts"`
	Errors     int `json:"errors"`

	// RootFingerprint is the remote root's content-address after the run,
	// feeding the next run's cheap skip.
	RootFingerprint string `json:"root_fingerprint"`

	// Skipped reports that the cheap-skip check proved there was nothing
	// to do.
	Skipped bool `json:"skipped"`
}

// snapEntry is one note id's remote state as of the phase-1 snapshot. A
// note may transiently resolve from both folders when a previous partial
// sync left a stale copy behind; the active copy is authoritative then.
type snapEntry struct {
	activeSHA string
	trashSHA  string
}

func (e snapEntry) sha() string {
	if e.activeSHA != "" {
		return e.activeSHA
	}
	return e.trashSHA
}

func (e snapEntry) deleted() bool {
	return e.activeSHA == "" && e.trashSHA != ""
}

// SyncWorkspace runs the full three-phase reconciliation for one workspace:
// snapshot the remote tree, pull and prune, then push local changes and
// resolve conflicts by forking. knownRoot, when non-empty, is the root
// fingerprint the caller saw after the previous run and enables the phase-0
// cheap skip. Cancellation is honored at phase boundaries; in-flight
// single-note writes complete.
//
// If the remote repository itself is gone, all local state for the
// workspace is cascade-deleted and a WORKSPACE_GONE error is returned.
func (s *Syncer) SyncWorkspace(ctx context.Context, ws *note.Workspace, knownRoot string) (*Result, error) {
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	rws := remoteWorkspace(ws)
	res := &Result{}

	// Phase 0 — cheap skip. One call against the rate limit instead of a
	// full listing when nothing moved on either side.
	root, err := s.remote.RootFingerprint(ctx, rws)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, s.workspaceGone(ctx, ws)
		}
		return nil, err
	}
	res.RootFingerprint = root
	if knownRoot != "" && root == knownRoot {
		dirty, err := store.CountDirty(ctx, s.db, ws.Name)
		if err != nil {
			return nil, err
		}
		if dirty == 0 {
			res.Skipped = true
			return res, nil
		}
	}

	// Phase 1 — snapshot both remote folders in one batched call.
	entries, err := s.remote.ListEntries(ctx, rws)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, s.workspaceGone(ctx, ws)
		}
		return nil, err
	}
	snapshot := make(map[string]snapEntry, len(entries))
	for _, e := range entries {
		se := snapshot[e.ID]
		if e.Deleted {
			se.trashSHA = e.SHA
		} else {
			se.activeSHA = e.SHA
		}
		snapshot[e.ID] = se
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	locals, err := store.ListAll(ctx, s.db, ws.Name)
	if err != nil {
		return res, err
	}
	localByID := make(map[string]*note.Note, len(locals))
	for _, ln := range locals {
		localByID[ln.ID] = ln
	}

	// Phase 2a — pull. New remote notes, and remote advances over clean
	// local copies. Dirty local notes are never overwritten here; phase 3
	// decides their fate.
	if err := s.pull(ctx, ws, snapshot, localByID, res); err != nil {
		return res, err
	}

	// Phase 2b — prune. A clean local note absent from both remote folders
	// was permanently deleted elsewhere; dirty notes are protected.
	for _, ln := range locals {
		if _, exists := snapshot[ln.ID]; exists {
			continue
		}
		if ln.SyncStatus != note.StatusSynced {
			continue
		}
		if err := store.Delete(ctx, s.db, ln.ID); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return res, err
		}
		res.Pruned++
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Phase 3 — push & conflict resolution over the post-pull local state.
	dirty, err := store.ListDirty(ctx, s.db, ws.Name)
	if err != nil {
		return res, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pushLimit)
	for _, n := range dirty {
		n := n
		g.Go(func() error {
			outcome, err := s.reconcileNote(gctx, ws, n, snapshot[n.ID])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Uploaded += outcome.uploaded
				res.Conflicts += outcome.conflicts
				return nil
			case errors.Is(err, errors.ErrUnauthorized):
				// Re-authorization is a session-level affair; stop the
				// pass, leave the rest queued.
				return err
			case gctx.Err() != nil:
				return nil
			default:
				res.Errors++
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	// Our own uploads moved the root; refresh the fingerprint so the next
	// cheap skip compares against reality.
	if res.Uploaded > 0 {
		if root, err := s.remote.RootFingerprint(ctx, rws); err == nil {
			res.RootFingerprint = root
		}
	}

	s.log.Info("workspace reconciled",
		"workspace", ws.Name,
		"uploaded", res.Uploaded,
		"downloaded", res.Downloaded,
		"pruned", res.Pruned,
		"conflicts", res.Conflicts,
		"errors", res.Errors)
	return res, nil
}

// pull downloads remote entries that are new locally or that moved ahead of
// a clean local copy, in bounded batches.
func (s *Syncer) pull(ctx context.Context, ws *note.Workspace, snapshot map[string]snapEntry, localByID map[string]*note.Note, res *Result) error {
	type pullItem struct {
		id      string
		sha     string
		deleted bool
	}
	var items []pullItem
	for id, se := range snapshot {
		ln := localByID[id]
		switch {
		case ln == nil:
			// New note arrived from another device.
		case ln.SyncStatus == note.StatusSynced && ln.RemoteFingerprint != se.sha():
			// Remote moved ahead and local has no unsaved changes.
		default:
			continue
		}
		items = append(items, pullItem{id: id, sha: se.sha(), deleted: se.deleted()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })

	rws := remoteWorkspace(ws)
	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		shas := make([]string, len(batch))
		for i, item := range batch {
			shas[i] = item.sha
		}
		blobs, err := s.remote.FetchBlobs(ctx, rws, shas)
		if err != nil {
			return err
		}

		for _, item := range batch {
			text, ok := blobs[item.sha]
			if !ok {
				s.log.Warn("remote blob missing from batch", "note", item.id, "sha", item.sha)
				continue
			}
			n, err := note.Deserialize(text, item.id)
			if err != nil {
				// Codec corruption is terminal for the note, not the run.
				s.log.Error("failed to decode remote note", "note", item.id, "error", err)
				continue
			}
			n.Workspace = ws.Name
			// The folder the note resolved from overrides whatever the
			// header claims.
			n.Deleted = item.deleted
			if n.Deleted && n.DeletedAt == nil {
				now := time.Now().UnixMilli()
				n.DeletedAt = &now
			}
			if !n.Deleted {
				n.DeletedAt = nil
			}
			n.RemoteFingerprint = item.sha
			n.SyncStatus = note.StatusSynced

			if err := store.UpsertFromRemote(ctx, s.db, n); err != nil {
				return err
			}
			res.Downloaded++
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// pushOutcome is what reconcileNote contributed to the run.
type pushOutcome struct {
	uploaded  int
	conflicts int
}

// reconcileNote settles one dirty note against the snapshot: the soft-delete
// upload sequence for tombstoned notes, a conflict fork when both sides
// changed, or a plain create-or-update otherwise.
func (s *Syncer) reconcileNote(ctx context.Context, ws *note.Workspace, n *note.Note, snap snapEntry) (pushOutcome, error) {
	if err := ctx.Err(); err != nil {
		return pushOutcome{}, err
	}

	prevStatus := n.SyncStatus
	if err := store.SetSyncStatus(ctx, s.db, n.ID, note.StatusSyncing); err != nil {
		return pushOutcome{}, err
	}

	outcome, err := s.reconcileDirty(ctx, ws, n, snap)
	if err != nil {
		bg := context.WithoutCancel(ctx)
		if errors.Is(err, errors.ErrUnauthorized) || ctx.Err() != nil {
			// Not this note's fault; put it back in the queue untouched.
			if restoreErr := store.SetSyncStatus(bg, s.db, n.ID, prevStatus); restoreErr != nil {
				s.log.Error("failed to restore sync status", "note", n.ID, "error", restoreErr)
			}
			return pushOutcome{}, err
		}
		s.recordFailure(bg, n.ID, err)
		return pushOutcome{}, err
	}
	return outcome, nil
}

func (s *Syncer) reconcileDirty(ctx context.Context, ws *note.Workspace, n *note.Note, snap snapEntry) (pushOutcome, error) {
	rws := remoteWorkspace(ws)

	if n.Deleted {
		text, err := note.Serialize(n)
		if err != nil {
			return pushOutcome{}, errors.NewInternal(err)
		}
		sha, err := s.uploadTrash(ctx, rws, n, text)
		if err != nil {
			return pushOutcome{}, err
		}
		// The snapshot already recorded the active-path fingerprint; no
		// fresh fetch needed for the cleanup.
		if snap.activeSHA != "" {
			activePath := remote.NotePath(n.ID, false)
			if cleanupErr := s.removeStale(ctx, rws, activePath, snap.activeSHA); cleanupErr != nil {
				s.log.Warn("stale active copy not removed", "note", n.ID, "error", cleanupErr)
			}
		}
		if err := store.SetSynced(ctx, s.db, n.ID, sha); err != nil {
			return pushOutcome{}, err
		}
		return pushOutcome{uploaded: 1}, nil
	}

	// A conflict exists iff local edited a version the remote has since
	// moved past, or two stores independently created the same id.
	hasRemote := snap.sha() != ""
	conflict := hasRemote &&
		((n.RemoteFingerprint != "" && snap.sha() != n.RemoteFingerprint) ||
			n.RemoteFingerprint == "")

	if conflict {
		if err := s.forkConflict(ctx, ws, n, snap); err != nil {
			return pushOutcome{}, err
		}
		return pushOutcome{conflicts: 1}, nil
	}

	text, err := note.Serialize(n)
	if err != nil {
		return pushOutcome{}, errors.NewInternal(err)
	}
	sha, err := s.uploadActive(ctx, rws, n, text)
	if err != nil {
		return pushOutcome{}, err
	}
	if snap.trashSHA != "" {
		trashPath := remote.NotePath(n.ID, true)
		if cleanupErr := s.removeStale(ctx, rws, trashPath, snap.trashSHA); cleanupErr != nil {
			s.log.Warn("stale trash copy not removed", "note", n.ID, "error", cleanupErr)
		}
	}
	if err := store.SetSynced(ctx, s.db, n.ID, sha); err != nil {
		return pushOutcome{}, err
	}
	return pushOutcome{uploaded: 1}, nil
}

// forkConflict preserves the losing local edit under a fresh id tagged with
// the reserved conflict tag, and snaps the original id to the remote's
// current state. The fork stays pending and uploads as a new note on a
// later cycle. The original's local content is not eagerly re-downloaded;
// it catches up through the normal pull path.
func (s *Syncer) forkConflict(ctx context.Context, ws *note.Workspace, n *note.Note, snap snapEntry) error {
	now := time.Now()
	fork := &note.Note{
		ID:         note.ConflictID(n.ID, now),
		Workspace:  ws.Name,
		Content:    n.Content,
		Tags:       note.NormalizeTags(append(append([]string{}, n.Tags...), note.TagConflict)),
		Title:      n.Title,
		IsTemplate: n.IsTemplate,
		CreatedAt:  now.UnixMilli(),
		UpdatedAt:  now.UnixMilli(),
		SyncStatus: note.StatusPending,
	}
	if err := store.Insert(ctx, s.db, fork); err != nil {
		return err
	}
	if snap.deleted() {
		// The winning remote copy lives in the trash; the original row must
		// match the path its fingerprint refers to, or the flag never heals
		// (the next pull sees matching fingerprints and leaves it alone).
		ms := now.UnixMilli()
		if err := store.SetDeleted(ctx, s.db, n.ID, true, &ms, ms, note.StatusSyncing); err != nil {
			return err
		}
	}
	if err := store.SetSynced(ctx, s.db, n.ID, snap.sha()); err != nil {
		return err
	}
	s.log.Warn("conflict forked",
		"workspace", ws.Name, "note", n.ID, "fork", fork.ID)
	return nil
}

// workspaceGone handles the remote repository vanishing out from under us:
// a destructive external event that cascades to all local state for the
// workspace and surfaces distinctly, never a silent recreate.
func (s *Syncer) workspaceGone(ctx context.Context, ws *note.Workspace) error {
	removed, err := store.DeleteWorkspaceCascade(context.WithoutCancel(ctx), s.db, ws.Name)
	if err != nil {
		return err
	}
	s.log.Warn("remote repository vanished; local workspace removed",
		"workspace", ws.Name, "notes_removed", removed)
	return errors.NewWorkspaceGone(ws.Name)
}
