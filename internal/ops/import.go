package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
)

// ImportMode controls collision behavior for existing note ids.
type ImportMode string

const (
	ImportModeSkip    ImportMode = "skip"    // default: leave existing notes alone
	ImportModeReplace ImportMode = "replace" // overwrite existing notes
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path      string // required
	Workspace string
	Mode      ImportMode // default: skip
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Replaced int `json:"replaced"`
}

// Import reads a JSONL export into the workspace. Imported notes whose sync
// bookkeeping was lost in transit land as pending so the next sync uploads
// them; records carrying a synced status and fingerprint are trusted as-is.
func Import(ctx context.Context, d *Deps, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	mode := input.Mode
	if mode == "" {
		mode = ImportModeSkip
	}
	if mode != ImportModeSkip && mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: skip, replace")
	}

	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(input.Path)
	if err != nil {
		return nil, errors.NewInvalidRequest("cannot open import file: " + err.Error())
	}
	defer f.Close()

	out := &ImportOutput{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec exportRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("line %d: invalid JSON: %v", line, err))
		}
		if rec.ID == "" || rec.Content == "" && !rec.Deleted {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("line %d: id and content are required", line))
		}

		n := noteFromRecord(&rec, ws.Name)

		_, getErr := store.Get(ctx, d.DB, n.ID)
		exists := getErr == nil
		if getErr != nil && !errors.Is(getErr, errors.ErrNotFound) {
			return nil, getErr
		}

		switch {
		case exists && mode == ImportModeSkip:
			out.Skipped++
		case exists:
			if err := store.UpsertFromRemote(ctx, d.DB, n); err != nil {
				return nil, err
			}
			out.Replaced++
		default:
			if err := store.Insert(ctx, d.DB, n); err != nil {
				return nil, err
			}
			out.Imported++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

func noteFromRecord(rec *exportRecord, workspace string) *note.Note {
	status := note.SyncStatus(rec.SyncStatus)
	if !status.Valid() || status == note.StatusSyncing {
		status = note.StatusPending
	}
	sha := rec.RemoteSHA
	if status == note.StatusSynced && sha == "" {
		status = note.StatusPending
	}
	if status != note.StatusSynced {
		// Fingerprints are only trustworthy on synced rows.
		if sha == "" {
			status = note.StatusPending
		} else {
			status = note.StatusModified
		}
	}
	return &note.Note{
		ID:                rec.ID,
		Workspace:         workspace,
		Content:           rec.Content,
		Tags:              note.NormalizeTags(rec.Tags),
		Title:             rec.Title,
		IsTemplate:        rec.IsTemplate,
		Deleted:           rec.Deleted,
		DeletedAt:         rec.DeletedAt,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
		RemoteFingerprint: sha,
		SyncStatus:        status,
	}
}
