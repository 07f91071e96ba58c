package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notefold/notefold/internal/errors"
	"github.com/notefold/notefold/internal/ops"
)

// Handlers holds the dependencies MCP tool handlers run against.
type Handlers struct {
	deps *ops.Deps
	// baseDir anchors default export paths.
	baseDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *ops.Deps, baseDir string) *Handlers {
	return &Handlers{deps: deps, baseDir: baseDir}
}

// Request types for each tool

// CreateRequest represents the arguments for note_create.
type CreateRequest struct {
	Content   string `json:"content"`
	Workspace string `json:"workspace,omitempty"`
	Template  bool   `json:"template,omitempty"`
}

// GetRequest represents the arguments for note_get.
type GetRequest struct {
	ID string `json:"id"`
}

// UpdateRequest represents the arguments for note_update.
type UpdateRequest struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Workspace string `json:"workspace,omitempty"`
	Template  *bool  `json:"template,omitempty"`
}

// DeleteRequest represents the arguments for note_delete, note_restore,
// note_purge, and sync_retry.
type DeleteRequest struct {
	ID        string `json:"id"`
	Workspace string `json:"workspace,omitempty"`
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	Workspace string `json:"workspace,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Status    string `json:"status,omitempty"`
	Since     int64  `json:"since,omitempty"`
	Until     int64  `json:"until,omitempty"`
	Trash     bool   `json:"trash,omitempty"`
	Templates bool   `json:"templates,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for note_search.
type SearchRequest struct {
	Query     string `json:"query"`
	Workspace string `json:"workspace,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for note_export.
type ExportRequest struct {
	Path      string `json:"path,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// ImportRequest represents the arguments for note_import.
type ImportRequest struct {
	Path      string `json:"path"`
	Workspace string `json:"workspace,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// WorkspaceRequest represents the arguments for sync_workspace and
// sync_status.
type WorkspaceRequest struct {
	Workspace string `json:"workspace,omitempty"`
}

// WorkspaceAddRequest represents the arguments for workspace_add.
type WorkspaceAddRequest struct {
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch,omitempty"`
}

// WorkspaceRemoveRequest represents the arguments for workspace_remove.
type WorkspaceRemoveRequest struct {
	Name string `json:"name"`
}

// Handler implementations

// HandleCreate handles the note_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.deps, ops.CreateInput{
		Workspace: input.Workspace,
		Content:   input.Content,
		Template:  input.Template,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the note_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(ctx, h.deps, ops.GetInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the note_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.deps, ops.UpdateInput{
		ID:        input.ID,
		Workspace: input.Workspace,
		Content:   input.Content,
		Template:  input.Template,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the note_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.deps, ops.DeleteInput{
		ID:        input.ID,
		Workspace: input.Workspace,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRestore handles the note_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Restore(ctx, h.deps, ops.RestoreInput{
		ID:        input.ID,
		Workspace: input.Workspace,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePurge handles the note_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.deps, ops.PurgeInput{
		ID:        input.ID,
		Workspace: input.Workspace,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the note_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var statuses []string
	for _, s := range strings.Split(input.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}

	result, err := ops.List(ctx, h.deps, ops.ListInput{
		Workspace: input.Workspace,
		Tag:       input.Tag,
		Status:    statuses,
		Since:     input.Since,
		Until:     input.Until,
		Trash:     input.Trash,
		Templates: input.Templates,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the note_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.deps, ops.SearchInput{
		Workspace: input.Workspace,
		Query:     input.Query,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.deps, ops.ExportInput{
		Path:      input.Path,
		Workspace: input.Workspace,
		BaseDir:   h.baseDir,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the note_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	mode := ops.ImportModeSkip
	if input.Mode == "replace" {
		mode = ops.ImportModeReplace
	}

	result, err := ops.Import(ctx, h.deps, ops.ImportInput{
		Path:      input.Path,
		Workspace: input.Workspace,
		Mode:      mode,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSync handles the sync_workspace tool call.
func (h *Handlers) HandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Sync(ctx, h.deps, ops.SyncInput{Workspace: input.Workspace})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRetry handles the sync_retry tool call.
func (h *Handlers) HandleRetry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Retry(ctx, h.deps, ops.RetryInput{
		ID:        input.ID,
		Workspace: input.Workspace,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatus handles the sync_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Status(ctx, h.deps, ops.StatusInput{Workspace: input.Workspace})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceAdd handles the workspace_add tool call.
func (h *Handlers) HandleWorkspaceAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.WorkspaceAdd(ctx, h.deps, ops.WorkspaceAddInput{
		Name:   input.Name,
		Owner:  input.Owner,
		Repo:   input.Repo,
		Branch: input.Branch,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceRemove handles the workspace_remove tool call.
func (h *Handlers) HandleWorkspaceRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WorkspaceRemoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.WorkspaceRemove(ctx, h.deps, ops.WorkspaceRemoveInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceList handles the workspace_list tool call.
func (h *Handlers) HandleWorkspaceList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.WorkspaceList(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error. Internal error
// details are withheld so file paths and SQL text do not leak to clients.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if nfErr, ok := err.(*errors.NotefoldError); ok {
		errorObj := map[string]any{
			"code":    nfErr.Code,
			"message": nfErr.Message,
			"status":  nfErr.Status,
		}
		if nfErr.Code != errors.ErrInternal && nfErr.Details != nil {
			errorObj["details"] = nfErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
