package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestNote(id, workspace, content string) *note.Note {
	return &note.Note{
		ID:         id,
		Workspace:  workspace,
		Content:    content,
		Tags:       []string{},
		CreatedAt:  1000,
		UpdatedAt:  1000,
		SyncStatus: note.StatusPending,
	}
}

func TestInsertAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01NOTE001", "default", "# Hello\n\nbody #go")
	n.Title = "Hello"
	n.Tags = []string{"go"}

	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := Get(ctx, db, n.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Workspace != "default" {
		t.Errorf("Workspace = %q, want default", got.Workspace)
	}
	if got.Content != n.Content {
		t.Errorf("Content = %q, want %q", got.Content, n.Content)
	}
	if got.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", got.Title)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "go" {
		t.Errorf("Tags = %v, want [go]", got.Tags)
	}
	if got.SyncStatus != note.StatusPending {
		t.Errorf("SyncStatus = %q, want pending", got.SyncStatus)
	}
	if got.Deleted {
		t.Errorf("Deleted = true, want false")
	}
}

func TestInsert_Duplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01NOTE002", "default", "content")
	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := Insert(ctx, db, n)
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("duplicate Insert error = %v, want CONFLICT", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := Get(context.Background(), db, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get error = %v, want NOT_FOUND", err)
	}
}

func TestList_ExcludesTrashedAndTemplates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	active := newTestNote("01LIST001", "default", "active")
	trashed := newTestNote("01LIST002", "default", "trashed")
	trashed.Deleted = true
	tpl := newTestNote("01LIST003", "default", "template")
	tpl.IsTemplate = true

	for _, n := range []*note.Note{active, trashed, tpl} {
		if err := Insert(ctx, db, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := List(ctx, db, ListFilter{Workspace: "default"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Fatalf("List = %d notes, want just the active one", len(got))
	}

	// Trash-only view
	got, err = List(ctx, db, ListFilter{Workspace: "default", DeletedOnly: true})
	if err != nil {
		t.Fatalf("List(DeletedOnly) failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != trashed.ID {
		t.Fatalf("List(DeletedOnly) = %d notes, want just the trashed one", len(got))
	}

	// Widened to templates
	got, err = List(ctx, db, ListFilter{Workspace: "default", IncludeTemplates: true})
	if err != nil {
		t.Fatalf("List(IncludeTemplates) failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(IncludeTemplates) = %d notes, want 2", len(got))
	}
}

func TestList_TagPrefix(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a := newTestNote("01TAG001", "default", "a")
	a.Tags = []string{"project/alpha"}
	b := newTestNote("01TAG002", "default", "b")
	b.Tags = []string{"project/beta"}
	c := newTestNote("01TAG003", "default", "c")
	c.Tags = []string{"personal"}

	for _, n := range []*note.Note{a, b, c} {
		if err := Insert(ctx, db, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := List(ctx, db, ListFilter{Workspace: "default", TagPrefix: "project/"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("tag prefix match = %d notes, want 2", len(got))
	}

	// LIKE metacharacters in the prefix must be literal.
	got, err = List(ctx, db, ListFilter{Workspace: "default", TagPrefix: "pro%"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("literal %% prefix matched %d notes, want 0", len(got))
	}
}

func TestList_StatusFilterAndOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	older := newTestNote("01ORD001", "default", "older")
	older.UpdatedAt = 1000
	newer := newTestNote("01ORD002", "default", "newer")
	newer.UpdatedAt = 2000
	newer.SyncStatus = note.StatusSynced

	for _, n := range []*note.Note{older, newer} {
		if err := Insert(ctx, db, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := List(ctx, db, ListFilter{Workspace: "default"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID {
		t.Fatalf("List order wrong: got %d notes, first %q", len(got), got[0].ID)
	}

	got, err = List(ctx, db, ListFilter{Workspace: "default", Statuses: []note.SyncStatus{note.StatusSynced}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != newer.ID {
		t.Fatalf("status filter = %d notes, want just the synced one", len(got))
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	match := newTestNote("01SRCH001", "default", "Grocery list: milk and eggs")
	match.Title = "Groceries"
	other := newTestNote("01SRCH002", "default", "meeting notes")
	trashed := newTestNote("01SRCH003", "default", "milk carton design")
	trashed.Deleted = true

	for _, n := range []*note.Note{match, other, trashed} {
		if err := Insert(ctx, db, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := Search(ctx, db, "default", "MILK", 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != match.ID {
		t.Fatalf("Search = %d notes, want the active match only", len(got))
	}

	// Title matches too
	got, err = Search(ctx, db, "default", "groceries", 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("title search = %d notes, want 1", len(got))
	}
}

func TestListDirtyAndCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	synced := newTestNote("01DRT002", "default", "synced")
	synced.SyncStatus = note.StatusSynced
	pending := newTestNote("01DRT001", "default", "pending")
	failed := newTestNote("01DRT003", "default", "failed")
	failed.SyncStatus = note.StatusError

	for _, n := range []*note.Note{synced, pending, failed} {
		if err := Insert(ctx, db, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	dirty, err := ListDirty(ctx, db, "default")
	if err != nil {
		t.Fatalf("ListDirty failed: %v", err)
	}
	if len(dirty) != 2 {
		t.Fatalf("ListDirty = %d notes, want 2", len(dirty))
	}
	// Stable id order
	if dirty[0].ID != pending.ID || dirty[1].ID != failed.ID {
		t.Errorf("ListDirty order = [%s %s], want id order", dirty[0].ID, dirty[1].ID)
	}

	count, err := CountDirty(ctx, db, "default")
	if err != nil {
		t.Fatalf("CountDirty failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountDirty = %d, want 2", count)
	}

	byStatus, err := CountByStatus(ctx, db, "default")
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if byStatus[note.StatusSynced] != 1 || byStatus[note.StatusPending] != 1 || byStatus[note.StatusError] != 1 {
		t.Errorf("CountByStatus = %v", byStatus)
	}
}

func TestUpdateContent_PreservesFingerprint(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01UPD001", "default", "v1")
	n.RemoteFingerprint = "sha-v1"
	n.SyncStatus = note.StatusSynced
	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := UpdateContent(ctx, db, n.ID, "v2 #edited", []string{"edited"}, "v2 title", false, 2000, note.StatusModified)
	if err != nil {
		t.Fatalf("UpdateContent failed: %v", err)
	}

	got, err := Get(ctx, db, n.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "v2 #edited" {
		t.Errorf("Content = %q, want v2 #edited", got.Content)
	}
	if got.SyncStatus != note.StatusModified {
		t.Errorf("SyncStatus = %q, want modified", got.SyncStatus)
	}
	if got.RemoteFingerprint != "sha-v1" {
		t.Errorf("RemoteFingerprint = %q, want sha-v1 (must survive content edits)", got.RemoteFingerprint)
	}
	if got.UpdatedAt != 2000 {
		t.Errorf("UpdatedAt = %d, want 2000", got.UpdatedAt)
	}
}

func TestUpdateContent_NotFound(t *testing.T) {
	db := testDB(t)

	err := UpdateContent(context.Background(), db, "missing", "x", nil, "", false, 1, note.StatusModified)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdateContent error = %v, want NOT_FOUND", err)
	}
}

func TestSyncStatusTransitions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01SYN001", "default", "content")
	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := SetSyncError(ctx, db, n.ID, "upload blew up"); err != nil {
		t.Fatalf("SetSyncError failed: %v", err)
	}
	got, _ := Get(ctx, db, n.ID)
	if got.SyncStatus != note.StatusError || got.SyncError != "upload blew up" {
		t.Fatalf("after SetSyncError: status=%q error=%q", got.SyncStatus, got.SyncError)
	}

	// A plain status change keeps the message around for diagnosis.
	if err := SetSyncStatus(ctx, db, n.ID, note.StatusModified); err != nil {
		t.Fatalf("SetSyncStatus failed: %v", err)
	}
	got, _ = Get(ctx, db, n.ID)
	if got.SyncStatus != note.StatusModified {
		t.Errorf("status = %q, want modified", got.SyncStatus)
	}
	if got.SyncError != "upload blew up" {
		t.Errorf("SetSyncStatus cleared sync_error")
	}

	// Settling as synced clears it.
	if err := SetSynced(ctx, db, n.ID, "sha-abc"); err != nil {
		t.Fatalf("SetSynced failed: %v", err)
	}
	got, _ = Get(ctx, db, n.ID)
	if got.SyncStatus != note.StatusSynced || got.RemoteFingerprint != "sha-abc" {
		t.Errorf("after SetSynced: status=%q sha=%q", got.SyncStatus, got.RemoteFingerprint)
	}
	if got.SyncError != "" {
		t.Errorf("SetSynced left sync_error = %q", got.SyncError)
	}
}

func TestSetDeleted_Roundtrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01DEL001", "default", "content")
	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	deletedAt := int64(5000)
	if err := SetDeleted(ctx, db, n.ID, true, &deletedAt, 5000, note.StatusPending); err != nil {
		t.Fatalf("SetDeleted failed: %v", err)
	}
	got, _ := Get(ctx, db, n.ID)
	if !got.Deleted || got.DeletedAt == nil || *got.DeletedAt != 5000 {
		t.Fatalf("after delete: deleted=%v deletedAt=%v", got.Deleted, got.DeletedAt)
	}

	if err := SetDeleted(ctx, db, n.ID, false, nil, 6000, note.StatusModified); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	got, _ = Get(ctx, db, n.ID)
	if got.Deleted || got.DeletedAt != nil {
		t.Errorf("after restore: deleted=%v deletedAt=%v, want cleared", got.Deleted, got.DeletedAt)
	}
}

func TestUpsertFromRemote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	incoming := newTestNote("01UPS001", "default", "remote v1")
	incoming.RemoteFingerprint = "sha-1"
	incoming.SyncStatus = note.StatusSynced
	incoming.Tags = []string{"remote"}

	if err := UpsertFromRemote(ctx, db, incoming); err != nil {
		t.Fatalf("UpsertFromRemote insert failed: %v", err)
	}

	// Second write replaces wholesale and clears any stale error.
	if err := SetSyncError(ctx, db, incoming.ID, "stale"); err != nil {
		t.Fatalf("SetSyncError failed: %v", err)
	}
	incoming.Content = "remote v2"
	incoming.RemoteFingerprint = "sha-2"
	if err := UpsertFromRemote(ctx, db, incoming); err != nil {
		t.Fatalf("UpsertFromRemote update failed: %v", err)
	}

	got, err := Get(ctx, db, incoming.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "remote v2" || got.RemoteFingerprint != "sha-2" {
		t.Errorf("content=%q sha=%q, want remote v2/sha-2", got.Content, got.RemoteFingerprint)
	}
	if got.SyncStatus != note.StatusSynced || got.SyncError != "" {
		t.Errorf("status=%q error=%q, want synced with no error", got.SyncStatus, got.SyncError)
	}
}

func TestDelete_Hard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := newTestNote("01HRD001", "default", "content")
	n.Tags = []string{"a", "b"}
	if err := Insert(ctx, db, n); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := Delete(ctx, db, n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := Get(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get after Delete = %v, want NOT_FOUND", err)
	}

	var tagRows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM note_tags WHERE note_id = ?`, n.ID).Scan(&tagRows); err != nil {
		t.Fatalf("tag count query failed: %v", err)
	}
	if tagRows != 0 {
		t.Errorf("tag rows left after hard delete = %d", tagRows)
	}

	if err := Delete(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete = %v, want NOT_FOUND", err)
	}
}
