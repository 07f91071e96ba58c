// Package remote defines the transport boundary between the sync engine and
// the version-controlled remote store. The engine depends only on the Client
// interface; concrete adapters live in subpackages.
package remote

import (
	"context"
	"strings"
)

// Remote path layout: one markdown file per note, named by note id, under
// one of two folders. The folder a note resolves from is authoritative for
// its deleted flag; this mapping lives here and nowhere else.
const (
	ActiveDir = "notes"
	TrashDir  = "trash"
	Ext       = ".md"
)

// NotePath returns the remote path for a note id given its tombstone state.
func NotePath(id string, deleted bool) string {
	dir := ActiveDir
	if deleted {
		dir = TrashDir
	}
	return dir + "/" + id + Ext
}

// ParsePath splits a remote path back into a note id and tombstone state.
// Paths outside the two note folders report ok=false.
func ParsePath(path string) (id string, deleted bool, ok bool) {
	name, found := strings.CutSuffix(path, Ext)
	if !found {
		return "", false, false
	}
	if rest, found := strings.CutPrefix(name, ActiveDir+"/"); found {
		return rest, false, rest != ""
	}
	if rest, found := strings.CutPrefix(name, TrashDir+"/"); found {
		return rest, true, rest != ""
	}
	return "", false, false
}

// Entry is one file in the remote listing.
type Entry struct {
	// ID is the note id parsed from the filename.
	ID string

	// Path is the full remote path the entry was found at.
	Path string

	// SHA is the remote content-address of the file's current blob.
	SHA string

	// Deleted reports whether the entry lives under the trash folder.
	Deleted bool
}

// Client is the engine's view of the remote store. Every method reports
// failures as coded *errors.NotefoldError values (NOT_FOUND, CONFLICT,
// UNAUTHORIZED, RATE_LIMITED, INTERNAL) so callers branch on codes, never
// on message text.
type Client interface {
	// RootFingerprint returns the content-address of the remote root tree,
	// the cheap has-anything-changed probe. A missing repository reports
	// NOT_FOUND.
	RootFingerprint(ctx context.Context, ws Workspace) (string, error)

	// ListEntries returns the active and trash folder contents in one
	// batched call. A missing repository reports NOT_FOUND; missing folders
	// are simply absent from the result.
	ListEntries(ctx context.Context, ws Workspace) ([]Entry, error)

	// FetchBlobs resolves up to a batch worth of blob content-addresses to
	// their text in one batched call.
	FetchBlobs(ctx context.Context, ws Workspace, shas []string) (map[string]string, error)

	// Stat returns the current content-address of the file at path, or
	// NOT_FOUND.
	Stat(ctx context.Context, ws Workspace, path string) (string, error)

	// Upload creates or updates the file at path. priorSHA is the expected
	// current content-address: empty means "create, the path must not
	// exist". A mismatch reports CONFLICT; updating a missing path reports
	// NOT_FOUND. Returns the new content-address.
	Upload(ctx context.Context, ws Workspace, path, content, priorSHA string) (string, error)

	// Delete removes the file at path, expecting it to be at sha. A missing
	// path reports NOT_FOUND; a sha mismatch reports CONFLICT.
	Delete(ctx context.Context, ws Workspace, path, sha string) error

	// EnsureWorkspace creates the remote repository if it does not exist.
	EnsureWorkspace(ctx context.Context, ws Workspace) error
}

// Workspace carries the remote coordinates a Client needs to address a
// repository.
type Workspace struct {
	Owner  string
	Repo   string
	Branch string
}
