// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"dialdesk/internal/service"
)

// FormatTaskHeader writes the status/id line followed by the instruction.
// Format: "[{STATUS}] {ID}\n{TASK}\n"
func FormatTaskHeader(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "[%s] %s\n", task.Status, task.ID)
	fmt.Fprintln(w, Oneline(task.Task))
}

// FormatTaskLine formats a task row for the task list.
// Format: "{ID:<24}  {STATUS:<21}  {TASK}\n"
func FormatTaskLine(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%-24s  %-21s  %s\n", task.ID, task.Status, Oneline(task.Task))
}

// FormatToolCall formats one planned tool call, numbered from 1.
// Arguments are printed as received.
func FormatToolCall(w io.Writer, num int, call service.ToolCall) {
	args := strings.TrimSpace(string(call.Arguments))
	if args == "" || args == "null" {
		fmt.Fprintf(w, "  %d. %s\n", num, call.Name)
		return
	}
	fmt.Fprintf(w, "  %d. %s %s\n", num, call.Name, Oneline(args))
}

// FormatCounts writes "status: n" pairs for every non-zero status, in lifecycle order.
func FormatCounts(w io.Writer, counts map[service.TaskStatus]int) {
	var parts []string
	for _, s := range service.AllStatuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", s, n))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}

// FormatAction formats a ranked suggested action.
// Format: "{N:>4}  {SCORE:.2f}  {TYPE:<10}  {CONTACT}  ({ID})\n" followed by
// optional indented risk and draft lines.
func FormatAction(w io.Writer, rank int, a service.RelationshipAction) {
	fmt.Fprintf(w, "%4d  %.2f  %-10s  %s  (%s)\n", rank, a.PriorityScore, a.Type, normalizeName(a.ContactName), a.ID)
	if len(a.RiskFlags) > 0 {
		fmt.Fprintf(w, "            risk: %s\n", strings.Join(a.RiskFlags, ", "))
	}
	if strings.TrimSpace(a.DraftMessage) != "" {
		channel := a.DraftChannel
		if channel == "" {
			channel = "message"
		}
		fmt.Fprintf(w, "            %s: %s\n", channel, Oneline(a.DraftMessage))
	}
}

// FormatChatMessage formats one chat history entry.
func FormatChatMessage(w io.Writer, m service.ChatMessage) {
	fmt.Fprintf(w, "%s: %s\n", m.Role, m.Content)
}

// Oneline collapses a text to a single display line.
// - Newlines are replaced with spaces
// - Empty or whitespace-only text becomes "(empty)"
func Oneline(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return "(empty)"
	}
	return text
}

// normalizeName normalizes a contact name for display.
// Empty or whitespace-only names become "(unknown)".
func normalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unknown)"
	}
	return name
}
