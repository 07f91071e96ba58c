// Package autosync decides when the slow path runs. It is pure policy:
// interval sweeps, visibility and idle guards, a process-wide mutex, and
// per-workspace locks. It contains no reconciliation logic of its own.
package autosync

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
	"github.com/notefold/notefold/internal/syncer"
)

// WorkspaceSyncer is the slice of the sync engine the scheduler drives.
type WorkspaceSyncer interface {
	SyncWorkspace(ctx context.Context, ws *note.Workspace, knownRoot string) (*syncer.Result, error)
}

// Options tunes the scheduler. Zero values select the defaults.
type Options struct {
	// Interval is the sweep cadence.
	Interval time.Duration

	// IdleWindow is how long after the last user input a periodic sweep
	// holds off, to avoid contending with active editing.
	IdleWindow time.Duration

	// OnResult, when non-nil, receives the outcome of every per-workspace
	// reconciliation attempt (err is nil on success).
	OnResult func(workspace string, res *syncer.Result, err error)
}

const (
	defaultInterval   = 5 * time.Minute
	defaultIdleWindow = 3 * time.Second
)

// Scheduler owns all auto-sync session state: the in-flight mutex, the
// per-workspace locks, and the last-known root fingerprints that feed the
// cheap skip. Create one at session start; drop it at shutdown.
type Scheduler struct {
	db     *sql.DB
	syncer WorkspaceSyncer
	log    *slog.Logger
	opts   Options

	// sweepMu serializes sweeps: a trigger arriving while one runs is
	// dropped, not queued.
	sweepMu sync.Mutex

	// wsMu guards wsLocks and lastRoot.
	wsMu    sync.Mutex
	wsLocks map[string]*sync.Mutex
	// lastRoot caches the remote root fingerprint per workspace across
	// cycles for the phase-0 cheap skip.
	lastRoot map[string]string

	// visible mirrors whether the application is foregrounded. Periodic
	// sweeps are skipped while hidden; explicit triggers are not.
	visible atomic.Bool

	// lastInput is the unix-nano timestamp of the latest user input.
	lastInput atomic.Int64
}

// New builds a Scheduler. A nil logger falls back to slog.Default().
func New(db *sql.DB, ws WorkspaceSyncer, log *slog.Logger, opts Options) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = defaultIdleWindow
	}
	s := &Scheduler{
		db:       db,
		syncer:   ws,
		log:      log,
		opts:     opts,
		wsLocks:  make(map[string]*sync.Mutex),
		lastRoot: make(map[string]string),
	}
	s.visible.Store(true)
	return s
}

// Run drives periodic sweeps until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx, false)
		}
	}
}

// SetVisible records whether the application is foregrounded.
func (s *Scheduler) SetVisible(visible bool) {
	s.visible.Store(visible)
}

// NoteActivity records a user input event (keystroke, pointer, touch) for
// the idle guard.
func (s *Scheduler) NoteActivity() {
	s.lastInput.Store(time.Now().UnixNano())
}

// NotifyOnline triggers a sweep when connectivity returns. Explicit, so it
// bypasses the visibility and idle guards.
func (s *Scheduler) NotifyOnline(ctx context.Context) {
	s.Sweep(ctx, true)
}

// NotifyFocusGained triggers a sweep when the user returns. Explicit, so it
// bypasses the visibility and idle guards.
func (s *Scheduler) NotifyFocusGained(ctx context.Context) {
	s.Sweep(ctx, true)
}

// Sweep reconciles every registered workspace once. A sweep already in
// flight causes this one to be dropped. Periodic (non-explicit) sweeps are
// additionally skipped while hidden or while the user is actively typing.
func (s *Scheduler) Sweep(ctx context.Context, explicit bool) {
	if !s.sweepMu.TryLock() {
		s.log.Debug("sweep dropped: reconciliation already in flight")
		return
	}
	defer s.sweepMu.Unlock()

	if !explicit {
		if !s.visible.Load() {
			s.log.Debug("sweep skipped: application hidden")
			return
		}
		if s.recentInput() {
			s.log.Debug("sweep skipped: user actively editing")
			return
		}
	}

	workspaces, err := store.ListWorkspaces(ctx, s.db)
	if err != nil {
		s.log.Error("failed to list workspaces", "error", err)
		return
	}

	for _, ws := range workspaces {
		if ctx.Err() != nil {
			return
		}
		s.syncOne(ctx, ws)
	}
}

// SyncNow reconciles a single workspace on demand (manual "sync now"). It
// bypasses every guard except the per-workspace lock: a workspace already
// being reconciled reports a conflict instead of blocking.
func (s *Scheduler) SyncNow(ctx context.Context, ws *note.Workspace) (*syncer.Result, error) {
	lock := s.workspaceLock(ws.Name)
	if !lock.TryLock() {
		return nil, errors.NewConflict("workspace sync already in progress: " + ws.Name)
	}
	defer lock.Unlock()

	return s.run(ctx, ws)
}

// syncOne reconciles one workspace within a sweep, skipping it when a
// concurrent manual action already holds its lock.
func (s *Scheduler) syncOne(ctx context.Context, ws *note.Workspace) {
	lock := s.workspaceLock(ws.Name)
	if !lock.TryLock() {
		s.log.Debug("workspace skipped this cycle: locked", "workspace", ws.Name)
		return
	}
	defer lock.Unlock()

	if _, err := s.run(ctx, ws); err != nil {
		s.log.Warn("workspace reconciliation failed", "workspace", ws.Name, "error", err)
	}
}

// run invokes the slow path with the cached root fingerprint and maintains
// the cache from the result.
func (s *Scheduler) run(ctx context.Context, ws *note.Workspace) (*syncer.Result, error) {
	res, err := s.syncer.SyncWorkspace(ctx, ws, s.knownRoot(ws.Name))
	if err != nil {
		if errors.Is(err, errors.ErrWorkspaceGone) {
			s.forgetRoot(ws.Name)
		}
		if s.opts.OnResult != nil {
			s.opts.OnResult(ws.Name, nil, err)
		}
		return nil, err
	}

	s.rememberRoot(ws.Name, res.RootFingerprint)
	if s.opts.OnResult != nil {
		s.opts.OnResult(ws.Name, res, nil)
	}
	return res, nil
}

func (s *Scheduler) recentInput() bool {
	last := s.lastInput.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) < s.opts.IdleWindow
}

func (s *Scheduler) workspaceLock(name string) *sync.Mutex {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	lock, ok := s.wsLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.wsLocks[name] = lock
	}
	return lock
}

func (s *Scheduler) knownRoot(name string) string {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.lastRoot[name]
}

func (s *Scheduler) rememberRoot(name, root string) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if root != "" {
		s.lastRoot[name] = root
	}
}

func (s *Scheduler) forgetRoot(name string) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	delete(s.lastRoot, name)
}
