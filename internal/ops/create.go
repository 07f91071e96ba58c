package ops

import (
	"context"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Workspace string // default: configured default workspace
	Content   string // required
	Template  bool
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Note NoteView `json:"note"`
}

// Create stores a new note as pending and kicks the fast path in the
// background. Title and tags are derived from the markdown body.
func Create(ctx context.Context, d *Deps, input CreateInput) (*CreateOutput, error) {
	if input.Content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}

	id, err := note.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().UnixMilli()
	n := &note.Note{
		ID:         id,
		Workspace:  ws.Name,
		Content:    input.Content,
		Tags:       note.ExtractTags(input.Content),
		Title:      note.ExtractTitle(input.Content),
		IsTemplate: input.Template,
		CreatedAt:  now,
		UpdatedAt:  now,
		SyncStatus: note.StatusPending,
	}
	if err := store.Insert(ctx, d.DB, n); err != nil {
		return nil, err
	}

	n = d.push(ctx, ws, n)

	return &CreateOutput{Note: viewOf(n, true)}, nil
}
