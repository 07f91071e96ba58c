// Package remotetest provides an in-memory remote.Client for engine tests:
// deterministic fingerprints, per-method call counters, and failure
// injection.
package remotetest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/remote"
)

// Calls counts invocations per Client method.
type Calls struct {
	RootFingerprint int
	ListEntries     int
	FetchBlobs      int
	Stat            int
	Upload          int
	Delete          int
	Ensure          int
}

// Fake is an in-memory remote.Client. All methods are safe for concurrent
// use.
type Fake struct {
	mu    sync.Mutex
	files map[string]string // path -> content
	blobs map[string]string // sha -> content
	gone  bool              // repository deleted externally
	calls Calls

	// failures maps method name -> error returned on the next call. The
	// entry is consumed by the call.
	failures map[string]error
}

// NewFake returns an empty fake remote.
func NewFake() *Fake {
	return &Fake{
		files:    make(map[string]string),
		blobs:    make(map[string]string),
		failures: make(map[string]error),
	}
}

// BlobSHA computes the content-address the fake hands out for content,
// using the git blob format the simulated backend uses.
func BlobSHA(content string) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Put seeds a file directly, bypassing counters and failure injection.
// Returns the stored blob sha.
func (f *Fake) Put(path, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sha := BlobSHA(content)
	f.files[path] = content
	f.blobs[sha] = content
	return sha
}

// Remove deletes a file directly, bypassing counters.
func (f *Fake) Remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
}

// Content returns the current content at path and whether it exists.
func (f *Fake) Content(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	return content, ok
}

// SHA returns the current blob sha at path, or "" when absent.
func (f *Fake) SHA(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return ""
	}
	return BlobSHA(content)
}

// SetGone simulates external deletion of the whole repository.
func (f *Fake) SetGone(gone bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone = gone
}

// FailNext arranges for the next call to the named method
// ("RootFingerprint", "ListEntries", "FetchBlobs", "Stat", "Upload",
// "Delete", "EnsureWorkspace") to return err.
func (f *Fake) FailNext(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// CallCounts returns a snapshot of the per-method call counters.
func (f *Fake) CallCounts() Calls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ResetCalls zeroes the call counters.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = Calls{}
}

// takeFailure consumes a pending injected failure. Caller holds f.mu.
func (f *Fake) takeFailure(method string) error {
	err := f.failures[method]
	delete(f.failures, method)
	return err
}

// RootFingerprint hashes the sorted path->sha listing, so it changes exactly
// when any file changes.
func (f *Fake) RootFingerprint(ctx context.Context, ws remote.Workspace) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.RootFingerprint++
	if err := f.takeFailure("RootFingerprint"); err != nil {
		return "", err
	}
	if f.gone {
		return "", errors.NewNotFound(ws.Owner + "/" + ws.Repo)
	}
	return f.rootLocked(), nil
}

func (f *Fake) rootLocked() string {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha1.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s:%s\n", p, BlobSHA(f.files[p]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Root returns the current root fingerprint without counting a call.
func (f *Fake) Root() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rootLocked()
}

// ListEntries lists both note folders.
func (f *Fake) ListEntries(ctx context.Context, ws remote.Workspace) ([]remote.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.ListEntries++
	if err := f.takeFailure("ListEntries"); err != nil {
		return nil, err
	}
	if f.gone {
		return nil, errors.NewNotFound(ws.Owner + "/" + ws.Repo)
	}

	var entries []remote.Entry
	for path, content := range f.files {
		id, deleted, ok := remote.ParsePath(path)
		if !ok {
			continue
		}
		entries = append(entries, remote.Entry{
			ID:      id,
			Path:    path,
			SHA:     BlobSHA(content),
			Deleted: deleted,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// FetchBlobs resolves shas recorded by previous writes or seeds.
func (f *Fake) FetchBlobs(ctx context.Context, ws remote.Workspace, shas []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.FetchBlobs++
	if err := f.takeFailure("FetchBlobs"); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(shas))
	for _, sha := range shas {
		if content, ok := f.blobs[sha]; ok {
			out[sha] = content
		}
	}
	return out, nil
}

// Stat returns the blob sha at path.
func (f *Fake) Stat(ctx context.Context, ws remote.Workspace, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.Stat++
	if err := f.takeFailure("Stat"); err != nil {
		return "", err
	}

	content, ok := f.files[path]
	if !ok {
		return "", errors.NewNotFound(path)
	}
	return BlobSHA(content), nil
}

// Upload enforces create-vs-update semantics on priorSHA exactly as the
// interface contract specifies.
func (f *Fake) Upload(ctx context.Context, ws remote.Workspace, path, content, priorSHA string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.Upload++
	if err := f.takeFailure("Upload"); err != nil {
		return "", err
	}

	existing, exists := f.files[path]
	if priorSHA == "" {
		if exists {
			return "", errors.NewConflict("path already exists: " + path)
		}
	} else {
		if !exists {
			return "", errors.NewNotFound(path)
		}
		if BlobSHA(existing) != priorSHA {
			return "", errors.NewConflict("fingerprint mismatch at " + path)
		}
	}

	sha := BlobSHA(content)
	f.files[path] = content
	f.blobs[sha] = content
	return sha, nil
}

// Delete removes the file at path when the sha matches.
func (f *Fake) Delete(ctx context.Context, ws remote.Workspace, path, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.Delete++
	if err := f.takeFailure("Delete"); err != nil {
		return err
	}

	existing, exists := f.files[path]
	if !exists {
		return errors.NewNotFound(path)
	}
	if sha != "" && BlobSHA(existing) != sha {
		return errors.NewConflict("fingerprint mismatch at " + path)
	}
	delete(f.files, path)
	return nil
}

// EnsureWorkspace clears the gone flag, simulating repository creation.
func (f *Fake) EnsureWorkspace(ctx context.Context, ws remote.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.Ensure++
	if err := f.takeFailure("EnsureWorkspace"); err != nil {
		return err
	}
	f.gone = false
	return nil
}
