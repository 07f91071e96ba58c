package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
)

// noteColumns is the canonical column list for scanning notes rows.
const noteColumns = `id, workspace, content, tags_json, title, is_template,
	deleted, deleted_at, created_at, updated_at, remote_sha, sync_status, sync_error`

// Insert stores a new note and its tag rows in one transaction.
func Insert(ctx context.Context, db *sql.DB, n *note.Note) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	tagsJSON, err := marshalTags(n.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notes (
			id, workspace, content, tags_json, title, is_template,
			deleted, deleted_at, created_at, updated_at,
			remote_sha, sync_status, sync_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		n.ID, n.Workspace, n.Content, tagsJSON, toNullString(n.Title), boolToInt(n.IsTemplate),
		boolToInt(n.Deleted), toNullInt64(n.DeletedAt), n.CreatedAt, n.UpdatedAt,
		n.RemoteFingerprint, string(n.SyncStatus), n.SyncError,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("note already exists: " + n.ID)
		}
		return errors.NewInternal(err)
	}

	if err := replaceTags(ctx, tx, n.ID, n.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Get retrieves a note by ID, including trashed and template notes.
func Get(ctx context.Context, db *sql.DB, id string) (*note.Note, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

// ListFilter narrows List results. Zero values mean "no filter" except
// Deleted and Templates, which default to excluding trashed and template
// notes the way UI listings do.
type ListFilter struct {
	Workspace string
	// Since/Until bound updated_at (epoch ms); zero means unbounded.
	Since int64
	Until int64
	// TagPrefix matches notes carrying a tag with this prefix.
	TagPrefix string
	// Statuses restricts to the given sync statuses when non-empty.
	Statuses []note.SyncStatus
	// IncludeDeleted widens the listing to trashed notes.
	IncludeDeleted bool
	// DeletedOnly restricts to trashed notes (overrides IncludeDeleted).
	DeletedOnly bool
	// IncludeTemplates widens the listing to template notes.
	IncludeTemplates bool
	Limit            int
	Offset           int
}

// List returns notes matching the filter, newest-updated first.
func List(ctx context.Context, db *sql.DB, f ListFilter) ([]*note.Note, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT ` + noteColumns + ` FROM notes WHERE 1=1`)
	if f.Workspace != "" {
		sb.WriteString(" AND workspace = ?")
		args = append(args, f.Workspace)
	}
	if f.Since > 0 {
		sb.WriteString(" AND updated_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		sb.WriteString(" AND updated_at <= ?")
		args = append(args, f.Until)
	}
	if f.TagPrefix != "" {
		sb.WriteString(" AND id IN (SELECT note_id FROM note_tags WHERE tag LIKE ? ESCAPE '\\')")
		args = append(args, escapeLike(f.TagPrefix)+"%")
	}
	if len(f.Statuses) > 0 {
		sb.WriteString(" AND sync_status IN (")
		for i, s := range f.Statuses {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, string(s))
		}
		sb.WriteString(")")
	}
	if f.DeletedOnly {
		sb.WriteString(" AND deleted = 1")
	} else if !f.IncludeDeleted {
		sb.WriteString(" AND deleted = 0")
	}
	if !f.IncludeTemplates {
		sb.WriteString(" AND is_template = 0")
	}
	sb.WriteString(" ORDER BY updated_at DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
		if f.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, f.Offset)
		}
	}

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// Search finds active, non-template notes whose title or content contains
// the query (case-insensitive LIKE), newest-updated first.
func Search(ctx context.Context, db *sql.DB, workspace, query string, limit, offset int) ([]*note.Note, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE workspace = ? AND deleted = 0 AND is_template = 0
		   AND (content LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\')
		 ORDER BY updated_at DESC
		 LIMIT ? OFFSET ?`,
		workspace, pattern, pattern, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// ListAll returns every note in a workspace regardless of deleted, template,
// or sync state. The reconciler uses this as the local side of its snapshot.
func ListAll(ctx context.Context, db *sql.DB, workspace string) ([]*note.Note, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE workspace = ?`, workspace)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// ListDirty returns every note in the workspace still owing an upload, in id
// order (stable across reconciliation runs).
func ListDirty(ctx context.Context, db *sql.DB, workspace string) ([]*note.Note, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE workspace = ? AND sync_status != ?
		 ORDER BY id`, workspace, string(note.StatusSynced))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// CountDirty counts notes in the workspace not settled as synced.
func CountDirty(ctx context.Context, db *sql.DB, workspace string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE workspace = ? AND sync_status != ?`,
		workspace, string(note.StatusSynced)).Scan(&count)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// CountByStatus returns per-status note counts for the workspace.
func CountByStatus(ctx context.Context, db *sql.DB, workspace string) (map[note.SyncStatus]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT sync_status, COUNT(*) FROM notes WHERE workspace = ? GROUP BY sync_status`,
		workspace)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[note.SyncStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[note.SyncStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// UpdateContent patches the content-bearing columns and the sync status of a
// note. Sync bookkeeping columns (remote_sha, sync_error) are deliberately
// left alone so a content edit never clobbers a concurrent status update's
// fingerprint, and vice versa.
func UpdateContent(ctx context.Context, db *sql.DB, id, content string, tags []string, title string, isTemplate bool, updatedAt int64, status note.SyncStatus) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE notes
		SET content = ?, tags_json = ?, title = ?, is_template = ?,
			updated_at = ?, sync_status = ?
		WHERE id = ?`,
		content, tagsJSON, toNullString(title), boolToInt(isTemplate),
		updatedAt, string(status), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return errors.NewInternal(err)
	} else if affected == 0 {
		return errors.NewNotFound(id)
	}

	if err := replaceTags(ctx, tx, id, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetSyncStatus patches only the sync_status column.
func SetSyncStatus(ctx context.Context, db *sql.DB, id string, status note.SyncStatus) error {
	return patchNote(ctx, db, id,
		`UPDATE notes SET sync_status = ? WHERE id = ?`, string(status), id)
}

// SetSynced marks a note as settled at the given remote fingerprint and
// clears any stale error message.
func SetSynced(ctx context.Context, db *sql.DB, id, fingerprint string) error {
	return patchNote(ctx, db, id,
		`UPDATE notes SET sync_status = ?, remote_sha = ?, sync_error = '' WHERE id = ?`,
		string(note.StatusSynced), fingerprint, id)
}

// SetSyncError marks a note's last upload attempt as failed.
func SetSyncError(ctx context.Context, db *sql.DB, id, message string) error {
	return patchNote(ctx, db, id,
		`UPDATE notes SET sync_status = ?, sync_error = ? WHERE id = ?`,
		string(note.StatusError), message, id)
}

// SetDeleted tombstones or restores a note. Restoring clears deleted_at.
func SetDeleted(ctx context.Context, db *sql.DB, id string, deleted bool, deletedAt *int64, updatedAt int64, status note.SyncStatus) error {
	return patchNote(ctx, db, id,
		`UPDATE notes SET deleted = ?, deleted_at = ?, updated_at = ?, sync_status = ? WHERE id = ?`,
		boolToInt(deleted), toNullInt64(deletedAt), updatedAt, string(status), id)
}

// UpsertFromRemote writes a note pulled from the remote store, replacing any
// local row wholesale. Callers must only use this for notes whose local copy
// is clean; the reconciler guarantees that.
func UpsertFromRemote(ctx context.Context, db *sql.DB, n *note.Note) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	tagsJSON, err := marshalTags(n.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (
			id, workspace, content, tags_json, title, is_template,
			deleted, deleted_at, created_at, updated_at,
			remote_sha, sync_status, sync_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '')
		ON CONFLICT(id) DO UPDATE SET
			workspace = excluded.workspace,
			content = excluded.content,
			tags_json = excluded.tags_json,
			title = excluded.title,
			is_template = excluded.is_template,
			deleted = excluded.deleted,
			deleted_at = excluded.deleted_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			remote_sha = excluded.remote_sha,
			sync_status = excluded.sync_status,
			sync_error = ''`,
		n.ID, n.Workspace, n.Content, tagsJSON, toNullString(n.Title), boolToInt(n.IsTemplate),
		boolToInt(n.Deleted), toNullInt64(n.DeletedAt), n.CreatedAt, n.UpdatedAt,
		n.RemoteFingerprint, string(n.SyncStatus),
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := replaceTags(ctx, tx, n.ID, n.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Delete permanently removes a note and its tag rows.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return errors.NewInternal(err)
	} else if affected == 0 {
		return errors.NewNotFound(id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// patchNote runs a single-note UPDATE and maps zero rows to not-found.
func patchNote(ctx context.Context, db *sql.DB, id, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// replaceTags rewrites a note's rows in the note_tags join table.
func replaceTags(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanNote.
type scanner interface {
	Scan(dest ...any) error
}

// scanNote scans a single row into a Note struct.
func scanNote(row scanner) (*note.Note, error) {
	var (
		n          note.Note
		tagsJSON   sql.NullString
		title      sql.NullString
		isTemplate int
		deleted    int
		deletedAt  sql.NullInt64
		status     string
	)

	err := row.Scan(
		&n.ID, &n.Workspace, &n.Content, &tagsJSON, &title, &isTemplate,
		&deleted, &deletedAt, &n.CreatedAt, &n.UpdatedAt,
		&n.RemoteFingerprint, &status, &n.SyncError,
	)
	if err != nil {
		return nil, err
	}

	n.Title = fromNullString(title)
	n.IsTemplate = isTemplate != 0
	n.Deleted = deleted != 0
	n.SyncStatus = note.SyncStatus(status)
	if deletedAt.Valid {
		n.DeletedAt = &deletedAt.Int64
	}

	n.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &n.Tags); err != nil {
			return nil, err
		}
	}

	return &n, nil
}

// scanNotes drains rows into a slice of notes.
func scanNotes(rows *sql.Rows) ([]*note.Note, error) {
	notes := []*note.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return notes, nil
}

// marshalTags converts a tag set to its tags_json column value.
func marshalTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, errors.NewInternal(err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE metacharacters in user-supplied patterns.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// toNullString converts an empty string to SQL NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// fromNullString converts a sql.NullString to a plain string.
func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// toNullInt64 converts a *int64 to sql.NullInt64.
func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
