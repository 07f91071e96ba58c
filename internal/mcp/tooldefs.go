package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var createToolDef = mcp.NewTool("note_create",
	mcp.WithDescription("Create a markdown note. The title is the first heading and tags are derived from #hashtags in the body. The note syncs to the workspace's GitHub repository in the background."),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("Markdown body of the note."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
	mcp.WithBoolean("template",
		mcp.Description("Mark the note as a template. Templates are excluded from listings and search by default."),
	),
)

var getToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Fetch a note by id, including its full content. Trashed notes are returned too, flagged as deleted."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
)

var updateToolDef = mcp.NewTool("note_update",
	mcp.WithDescription("Replace a note's markdown body. Title and tags are re-derived from the new body. Trashed notes must be restored first."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("New markdown body."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
	mcp.WithBoolean("template",
		mcp.Description("Change the template flag alongside the content."),
	),
)

var deleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Move a note to the trash. The remote copy migrates to the trash folder on the next sync. Use note_restore to undo or note_purge to delete permanently."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var restoreToolDef = mcp.NewTool("note_restore",
	mcp.WithDescription("Lift a note out of the trash back into the active set."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var purgeToolDef = mcp.NewTool("note_purge",
	mcp.WithDescription("Permanently delete a trashed note, locally and remotely. Only trashed notes can be purged."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List notes in a workspace, newest-updated first. Content is omitted; use note_get to read a note."),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
	mcp.WithString("tag",
		mcp.Description("Only notes carrying a tag with this prefix."),
	),
	mcp.WithString("status",
		mcp.Description("Comma-separated sync statuses to filter by (synced, pending, modified, syncing, error)."),
	),
	mcp.WithNumber("since",
		mcp.Description("Only notes updated at or after this epoch-millisecond timestamp."),
	),
	mcp.WithNumber("until",
		mcp.Description("Only notes updated at or before this epoch-millisecond timestamp."),
	),
	mcp.WithBoolean("trash",
		mcp.Description("List trashed notes instead of active ones."),
	),
	mcp.WithBoolean("templates",
		mcp.Description("Include template notes."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 20, max 100)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset."),
	),
)

var searchToolDef = mcp.NewTool("note_search",
	mcp.WithDescription("Full-text search over active note titles and bodies, case-insensitive, newest-updated first."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search text."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 20, max 100)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset."),
	),
)

var exportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Export every note in a workspace (trash and templates included) to a JSONL file."),
	mcp.WithString("path",
		mcp.Description("Output file path; defaults to an exports/ file under the data directory."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var importToolDef = mcp.NewTool("note_import",
	mcp.WithDescription("Import notes from a JSONL export into a workspace. Imported notes missing sync bookkeeping are queued for upload on the next sync."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the JSONL file."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
	mcp.WithString("mode",
		mcp.Description("Collision handling: skip (default) keeps existing notes, replace overwrites them."),
		mcp.Enum("skip", "replace"),
	),
)

var syncToolDef = mcp.NewTool("sync_workspace",
	mcp.WithDescription("Run a full reconciliation against the workspace's GitHub repository: pull remote changes, prune remotely-deleted notes, and push local ones. Divergent edits fork into a conflict copy."),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var retryToolDef = mcp.NewTool("sync_retry",
	mcp.WithDescription("Retry the upload of a note stuck in the error sync state and report the outcome."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Note id."),
	),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var statusToolDef = mcp.NewTool("sync_status",
	mcp.WithDescription("Report per-status note counts for a workspace and whether a sync is currently running."),
	mcp.WithString("workspace",
		mcp.Description("Workspace name; defaults to the configured default workspace."),
	),
)

var workspaceAddToolDef = mcp.NewTool("workspace_add",
	mcp.WithDescription("Register a workspace backed by a GitHub repository, creating the repository if it does not exist."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Local workspace handle."),
	),
	mcp.WithString("owner",
		mcp.Required(),
		mcp.Description("GitHub account owning the repository."),
	),
	mcp.WithString("repo",
		mcp.Required(),
		mcp.Description("Repository name."),
	),
	mcp.WithString("branch",
		mcp.Description("Branch to sync against (default main)."),
	),
)

var workspaceRemoveToolDef = mcp.NewTool("workspace_remove",
	mcp.WithDescription("Forget a workspace and delete its local notes. The remote repository is left untouched."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Workspace name."),
	),
)

var workspaceListToolDef = mcp.NewTool("workspace_list",
	mcp.WithDescription("List all registered workspaces."),
)
