package ops

import (
	"context"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID        string // required
	Workspace string
	Content   string // required: the new markdown body
	Template  *bool  // optional template flag change
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Note NoteView `json:"note"`
}

// Update replaces a note's body, re-derives title and tags, marks it dirty,
// and kicks the fast path in the background. Trashed notes must be restored
// before editing.
func Update(ctx context.Context, d *Deps, input UpdateInput) (*UpdateOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if input.Content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	n, err := requireNoteInWorkspace(ctx, d, ws, input.ID)
	if err != nil {
		return nil, err
	}
	if n.Deleted {
		return nil, errors.NewInvalidRequest("note is in trash; restore it before editing")
	}

	isTemplate := n.IsTemplate
	if input.Template != nil {
		isTemplate = *input.Template
	}

	n.Content = input.Content
	n.Tags = note.ExtractTags(input.Content)
	n.Title = note.ExtractTitle(input.Content)
	n.IsTemplate = isTemplate
	n.UpdatedAt = time.Now().UnixMilli()
	n.SyncStatus = dirtyStatus(n)

	if err := store.UpdateContent(ctx, d.DB, n.ID, n.Content, n.Tags, n.Title, n.IsTemplate, n.UpdatedAt, n.SyncStatus); err != nil {
		return nil, err
	}

	n = d.push(ctx, ws, n)

	return &UpdateOutput{Note: viewOf(n, true)}, nil
}
