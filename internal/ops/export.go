package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/note"
	"github.com/notefold/notefold/internal/store"
)

// exportRecord is one JSONL line in an export file. It carries the full
// local row, sync bookkeeping included, so an import can resume syncing
// where the exporting machine left off.
type exportRecord struct {
	ID         string   `json:"id"`
	Workspace  string   `json:"workspace"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	Title      string   `json:"title,omitempty"`
	IsTemplate bool     `json:"is_template,omitempty"`
	Deleted    bool     `json:"deleted,omitempty"`
	DeletedAt  *int64   `json:"deleted_at,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
	RemoteSHA  string   `json:"remote_sha,omitempty"`
	SyncStatus string   `json:"sync_status"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	// Path is the output file; default baseDir/exports/<workspace>-<ts>.jsonl.
	Path      string
	Workspace string
	// BaseDir anchors the default export location.
	BaseDir string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path     string `json:"path"`
	Exported int    `json:"exported"`
}

// Export writes every note in the workspace (trash and templates included)
// to a JSONL file.
func Export(ctx context.Context, d *Deps, input ExportInput) (*ExportOutput, error) {
	ws, err := d.workspace(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}

	path := input.Path
	if path == "" {
		name := fmt.Sprintf("%s-%d.jsonl", ws.Name, time.Now().Unix())
		path = filepath.Join(input.BaseDir, "exports", name)
	}

	notes, err := store.ListAll(ctx, d.DB, ws.Name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, n := range notes {
		if err := enc.Encode(recordOf(n)); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ExportOutput{Path: path, Exported: len(notes)}, nil
}

func recordOf(n *note.Note) exportRecord {
	return exportRecord{
		ID:         n.ID,
		Workspace:  n.Workspace,
		Content:    n.Content,
		Tags:       n.Tags,
		Title:      n.Title,
		IsTemplate: n.IsTemplate,
		Deleted:    n.Deleted,
		DeletedAt:  n.DeletedAt,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		RemoteSHA:  n.RemoteFingerprint,
		SyncStatus: string(n.SyncStatus),
	}
}
