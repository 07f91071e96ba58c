package ops

import (
	"context"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/store"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID string // required
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	Note NoteView `json:"note"`
}

// Get retrieves a note by id, trashed notes included.
func Get(ctx context.Context, d *Deps, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	n, err := store.Get(ctx, d.DB, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Note: viewOf(n, true)}, nil
}
