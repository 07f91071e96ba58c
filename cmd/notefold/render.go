package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/notefold/notefold/internal/ops"
	"github.com/notefold/notefold/internal/syncer"
)

var (
	idStyle    = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// statusBadge renders a sync status as a colored badge.
func statusBadge(status string) string {
	switch strings.TrimSpace(status) {
	case "synced":
		return okStyle.Render(status)
	case "error":
		return errStyle.Render(status)
	case "syncing":
		return tagStyle.Render(status)
	default: // pending, modified
		return warnStyle.Render(status)
	}
}

// renderNoteList renders notes as one line each: id, badge, title, tags.
func renderNoteList(items []ops.NoteView) string {
	if len(items) == 0 {
		return "no notes\n"
	}
	var b strings.Builder
	for _, n := range items {
		title := n.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%s  %s  %s", idStyle.Render(n.ID), statusBadge(fmt.Sprintf("%-8s", n.SyncStatus)), titleStyle.Render(title))
		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, "  %s", tagStyle.Render("#"+strings.Join(n.Tags, " #")))
		}
		fmt.Fprintf(&b, "  %s", idStyle.Render(time.UnixMilli(n.UpdatedAt).Format("2006-01-02 15:04")))
		b.WriteByte('\n')
	}
	return b.String()
}

// renderSyncResult renders a one-line reconciliation summary, conflicts and
// errors highlighted.
func renderSyncResult(workspace string, res *syncer.Result) string {
	if res.Skipped {
		return fmt.Sprintf("%s: %s", titleStyle.Render(workspace), okStyle.Render("up to date"))
	}
	parts := []string{
		fmt.Sprintf("%d uploaded", res.Uploaded),
		fmt.Sprintf("%d downloaded", res.Downloaded),
		fmt.Sprintf("%d pruned", res.Pruned),
	}
	if res.Conflicts > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d conflicts", res.Conflicts)))
	}
	if res.Errors > 0 {
		parts = append(parts, errStyle.Render(fmt.Sprintf("%d errors", res.Errors)))
	}
	return fmt.Sprintf("%s: %s", titleStyle.Render(workspace), strings.Join(parts, ", "))
}

// renderStatus renders per-status counts plus the in-flight indicator.
func renderStatus(out *ops.StatusOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(out.Workspace))
	for _, status := range []string{"synced", "pending", "modified", "syncing", "error"} {
		count := out.Counts[status]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s %d\n", statusBadge(fmt.Sprintf("%-8s", status)), count)
	}
	if out.Dirty == 0 {
		fmt.Fprintf(&b, "  %s\n", okStyle.Render("everything synced"))
	} else {
		fmt.Fprintf(&b, "  %s\n", warnStyle.Render(fmt.Sprintf("%d notes waiting to sync", out.Dirty)))
	}
	if out.Syncing {
		fmt.Fprintf(&b, "  %s\n", tagStyle.Render("sync in progress"))
	}
	return b.String()
}
