package note

// TagConflict is the reserved tag assigned to conflict forks. It is never
// derived from body hashtags; only the sync engine applies it.
const TagConflict = "conflict"

// SyncStatus tracks where a note sits in its sync lifecycle.
type SyncStatus string

const (
	// StatusSynced means the local row matches the remote copy as of the
	// last exchange; RemoteFingerprint is trustworthy.
	StatusSynced SyncStatus = "synced"

	// StatusPending means the note was created locally and has never been
	// uploaded.
	StatusPending SyncStatus = "pending"

	// StatusModified means the note has local edits newer than the last
	// successful upload.
	StatusModified SyncStatus = "modified"

	// StatusSyncing means an upload for this note is in flight.
	StatusSyncing SyncStatus = "syncing"

	// StatusError means the last upload attempt failed; SyncError holds the
	// operator-facing message.
	StatusError SyncStatus = "error"
)

// Dirty reports whether the note still owes the remote an upload. Anything
// not settled as synced counts, including rows stranded in syncing by a
// crash mid-push.
func (s SyncStatus) Dirty() bool {
	return s != StatusSynced
}

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusSynced, StatusPending, StatusModified, StatusSyncing, StatusError:
		return true
	}
	return false
}

// Note represents a single markdown note in a workspace.
type Note struct {
	// ID is a ULID that uniquely identifies this note; it never changes and
	// doubles as the remote filename stem.
	ID string

	// Workspace is the local handle of the workspace the note belongs to.
	Workspace string

	// Content is the markdown body.
	Content string

	// Tags is the lowercase tag set derived from inline #hashtags, stored
	// as JSON in the DB.
	Tags []string

	// Title is the text of the first markdown heading, empty when the body
	// has none.
	Title string

	// IsTemplate marks notes excluded from default listings.
	IsTemplate bool

	// Deleted marks the note as trashed. Trashed notes live under the
	// remote trash folder instead of the active folder.
	Deleted bool

	// DeletedAt is the epoch-millisecond trash timestamp (nullable).
	DeletedAt *int64

	// CreatedAt is the epoch-millisecond creation timestamp.
	CreatedAt int64

	// UpdatedAt is the epoch-millisecond last-edit timestamp.
	UpdatedAt int64

	// RemoteFingerprint is the content-addressed id the remote reported for
	// this note's file. Empty means never uploaded. Only trustworthy while
	// SyncStatus is synced.
	RemoteFingerprint string

	// SyncStatus is the note's position in the sync lifecycle.
	SyncStatus SyncStatus

	// SyncError is the message from the last failed upload (empty otherwise).
	SyncError string
}

// Dirty reports whether the note owes the remote an upload.
func (n *Note) Dirty() bool {
	return n.SyncStatus.Dirty()
}

// Workspace maps a local workspace handle to its remote repository
// coordinates.
type Workspace struct {
	// Name is the unique local handle.
	Name string `json:"name"`

	// Owner is the remote account owning the repository.
	Owner string `json:"owner"`

	// Repo is the repository name.
	Repo string `json:"repo"`

	// Branch is the branch holding the notes tree.
	Branch string `json:"branch"`

	// CreatedAt is the epoch-millisecond registration timestamp.
	CreatedAt int64 `json:"created_at"`
}
