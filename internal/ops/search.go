package ops

import (
	"context"
	"strings"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/store"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Workspace string
	Query     string // required
	Limit     int
	Offset    int
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []NoteView `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Search finds active notes whose title or body contains the query,
// case-insensitively, newest-updated first.
func Search(ctx context.Context, d *Deps, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	limit, err := clampLimit(input.Limit)
	if err != nil {
		return nil, err
	}

	notes, err := store.Search(ctx, d.DB, ws.Name, query, limit+1, input.Offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(notes) > limit
	if hasMore {
		notes = notes[:limit]
	}

	items := make([]NoteView, len(notes))
	for i, n := range notes {
		items[i] = viewOf(n, false)
	}
	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  input.Offset,
			HasMore: hasMore,
		},
	}, nil
}
