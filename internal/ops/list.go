package ops

import (
	"context"

	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Workspace string
	// Tag filters to notes carrying a tag with this prefix.
	Tag string
	// Status filters to the given sync statuses.
	Status []string
	// Since/Until bound updated_at (epoch ms).
	Since int64
	Until int64
	// Trash lists trashed notes instead of active ones.
	Trash bool
	// Templates widens the listing to template notes.
	Templates bool
	Limit     int
	Offset    int
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []NoteView `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// List returns notes in a workspace, newest-updated first, content omitted.
func List(ctx context.Context, d *Deps, input ListInput) (*ListOutput, error) {
	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	limit, err := clampLimit(input.Limit)
	if err != nil {
		return nil, err
	}

	statuses := make([]note.SyncStatus, 0, len(input.Status))
	for _, s := range input.Status {
		statuses = append(statuses, note.SyncStatus(s))
	}

	// Fetch one extra row to learn whether another page exists.
	notes, err := store.List(ctx, d.DB, store.ListFilter{
		Workspace:        ws.Name,
		Since:            input.Since,
		Until:            input.Until,
		TagPrefix:        input.Tag,
		Statuses:         statuses,
		DeletedOnly:      input.Trash,
		IncludeTemplates: input.Templates,
		Limit:            limit + 1,
		Offset:           input.Offset,
	})
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
	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  input.Offset,
			HasMore: hasMore,
		},
	}, nil
}
