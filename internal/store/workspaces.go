package store

import (
	"context"
	"database/sql"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
)

// InsertWorkspace registers a workspace's remote coordinates.
func InsertWorkspace(ctx context.Context, db *sql.DB, ws *note.Workspace) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO workspaces (name, owner, repo, branch, created_at) VALUES (?, ?, ?, ?, ?)`,
		ws.Name, ws.Owner, ws.Repo, ws.Branch, ws.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("workspace already exists: " + ws.Name)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by its local handle.
func GetWorkspace(ctx context.Context, db *sql.DB, name string) (*note.Workspace, error) {
	var ws note.Workspace
	err := db.QueryRowContext(ctx,
		`SELECT name, owner, repo, branch, created_at FROM workspaces WHERE name = ?`, name).
		Scan(&ws.Name, &ws.Owner, &ws.Repo, &ws.Branch, &ws.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewWorkspaceNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ws, nil
}

// ListWorkspaces returns all registered workspaces in name order.
func ListWorkspaces(ctx context.Context, db *sql.DB) ([]*note.Workspace, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, owner, repo, branch, created_at FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	workspaces := []*note.Workspace{}
	for rows.Next() {
		var ws note.Workspace
		if err := rows.Scan(&ws.Name, &ws.Owner, &ws.Repo, &ws.Branch, &ws.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		workspaces = append(workspaces, &ws)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return workspaces, nil
}

// DeleteWorkspaceCascade removes a workspace record together with every note
// and tag row tagged with it, in one transaction. Used both for explicit
// workspace removal and when the remote repository has vanished.
func DeleteWorkspaceCascade(ctx context.Context, db *sql.DB, name string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM note_tags WHERE note_id IN (SELECT id FROM notes WHERE workspace = ?)`,
		name); err != nil {
		return 0, errors.NewInternal(err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE workspace = ?`, name)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name); err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(removed), nil
}
