package ops

import (
	"context"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/remote"
	"github.com/notefold/notefold/internal/store"
)

// WorkspaceAddInput contains parameters for the WorkspaceAdd operation.
type WorkspaceAddInput struct {
	Name   string // required: local handle
	Owner  string // required: remote account
	Repo   string // required: repository name
	Branch string // default: main
}

// WorkspaceAddOutput contains the result of the WorkspaceAdd operation.
type WorkspaceAddOutput struct {
	Workspace note.Workspace `json:"workspace"`
}

// WorkspaceAdd registers a workspace and auto-initializes its remote
// repository on first use.
func WorkspaceAdd(ctx context.Context, d *Deps, input WorkspaceAddInput) (*WorkspaceAddOutput, error) {
	if input.Name == "" || input.Owner == "" || input.Repo == "" {
		return nil, errors.NewInvalidRequest("name, owner, and repo are required")
	}
	if input.Branch == "" {
		input.Branch = "main"
	}

	ws := &note.Workspace{
		Name:      input.Name,
		Owner:     input.Owner,
		Repo:      input.Repo,
		Branch:    input.Branch,
		CreatedAt: time.Now().UnixMilli(),
	}

	if d.Remote != nil {
		rws := remote.Workspace{Owner: ws.Owner, Repo: ws.Repo, Branch: ws.Branch}
		if err := d.Remote.EnsureWorkspace(ctx, rws); err != nil {
			return nil, err
		}
	}

	if err := store.InsertWorkspace(ctx, d.DB, ws); err != nil {
		return nil, err
	}
	return &WorkspaceAddOutput{Workspace: *ws}, nil
}

// WorkspaceRemoveInput contains parameters for the WorkspaceRemove operation.
type WorkspaceRemoveInput struct {
	Name string // required
}

// WorkspaceRemoveOutput contains the result of the WorkspaceRemove operation.
type WorkspaceRemoveOutput struct {
	Name         string `json:"name"`
	NotesRemoved int    `json:"notes_removed"`
}

// WorkspaceRemove drops a workspace and every local note in it, in one
// transaction. The remote repository is left untouched; this only forgets
// the local replica.
func WorkspaceRemove(ctx context.Context, d *Deps, input WorkspaceRemoveInput) (*WorkspaceRemoveOutput, error) {
	if input.Name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if _, err := store.GetWorkspace(ctx, d.DB, input.Name); err != nil {
		return nil, err
	}

	removed, err := store.DeleteWorkspaceCascade(ctx, d.DB, input.Name)
	if err != nil {
		return nil, err
	}
	return &WorkspaceRemoveOutput{Name: input.Name, NotesRemoved: removed}, nil
}

// WorkspaceListOutput contains the result of the WorkspaceList operation.
type WorkspaceListOutput struct {
	Workspaces []note.Workspace `json:"workspaces"`
}

// WorkspaceList returns all registered workspaces.
func WorkspaceList(ctx context.Context, d *Deps) (*WorkspaceListOutput, error) {
	list, err := store.ListWorkspaces(ctx, d.DB)
	if err != nil {
		return nil, err
	}
	out := &WorkspaceListOutput{Workspaces: make([]note.Workspace, len(list))}
	for i, ws := range list {
		out.Workspaces[i] = *ws
	}
	return out, nil
}
