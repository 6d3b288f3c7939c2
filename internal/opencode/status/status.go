// Package status converts tool invocations into human-readable status text.
// Every function here is pure and total: any input, including empty strings
// and malformed arguments, produces a usable display string.
package status

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// actionMessages maps known tool names to a fixed gerund phrase shown while
// the tool is starting up.
var actionMessages = map[string]string{
	"read":      "Reading file...",
	"edit":      "Editing file...",
	"write":     "Writing file...",
	"bash":      "Writing command...",
	"grep":      "Searching...",
	"glob":      "Finding files...",
	"list":      "Listing files...",
	"webfetch":  "Fetching from the web...",
	"todowrite": "Planning...",
	"todoread":  "Reading plan...",
	"task":      "Delegating task...",
}

// ActionMessage returns the gerund phrase for a known tool name,
// "Working..." for anything else.
func ActionMessage(toolName string) string {
	if msg, ok := actionMessages[toolName]; ok {
		return msg
	}
	return "Working..."
}

// DisplayName normalizes a raw tool identifier for presentation: strips
// mcp_/localmcp_ prefixes, special-cases webfetch, and title-cases the rest.
func DisplayName(toolName string) string {
	name := strings.TrimPrefix(toolName, "localmcp_")
	name = strings.TrimPrefix(name, "mcp_")
	if name == "webfetch" {
		return "Fetch"
	}
	if name == "" {
		return "Tool"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// RelativePath converts an absolute server-side file path to a display path
// relative to the server working directory. Paths use POSIX separators
// because they describe the remote machine, never the local one.
//
// Fallback chain: no path at all yields the literal "file"; a cwd that does
// not prefix the path yields the basename.
func RelativePath(filePath, serverCwd string) string {
	if filePath == "" {
		return "file"
	}
	if serverCwd != "" {
		prefix := strings.TrimRight(serverCwd, "/") + "/"
		if rel := strings.TrimPrefix(filePath, prefix); rel != filePath && rel != "" {
			return rel
		}
	}
	return path.Base(filePath)
}

const maxRawURLLen = 40

// ContextualTitle formats a tool-specific status line from the tool name,
// its arguments, and the server working directory.
func ContextualTitle(toolName string, args map[string]any, serverCwd string) string {
	switch toolName {
	case "read", "edit", "write":
		return DisplayName(toolName) + " " + RelativePath(stringArg(args, "filePath"), serverCwd)
	case "bash":
		if desc := stringArg(args, "description"); desc != "" {
			return "Bash " + desc
		}
		return "Bash command"
	case "webfetch":
		return fetchTitle(stringArg(args, "url"))
	case "todowrite":
		return TodoPhase(args)
	default:
		return DisplayName(toolName)
	}
}

// fetchTitle formats the webfetch status. URL parse failures are caught and
// fall back to the truncated raw string.
func fetchTitle(raw string) string {
	if raw == "" {
		return "Fetch URL"
	}
	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return "Fetch " + u.Hostname()
	}
	if len(raw) > maxRawURLLen {
		raw = raw[:maxRawURLLen] + "..."
	}
	return "Fetch " + raw
}

// TodoItem is one entry of a todowrite argument list.
type TodoItem struct {
	Content  string
	Status   string
	ID       string
	Priority string
}

// TodoPhase summarizes a todowrite invocation: the in-progress item if any,
// else completion progress, else the literal "Plan". Malformed arguments
// also yield "Plan".
func TodoPhase(args map[string]any) string {
	todos, ok := parseTodos(args)
	if !ok {
		return "Plan"
	}

	for _, todo := range todos {
		if todo.Status == "in_progress" {
			return "Working on: " + todo.Content
		}
	}

	completed := 0
	for _, todo := range todos {
		if todo.Status == "completed" {
			completed++
		}
	}
	if completed > 0 && completed < len(todos) {
		return fmt.Sprintf("Completed: %d/%d", completed, len(todos))
	}
	return "Plan"
}

// parseTodos is the runtime shape guard for todowrite arguments: every
// element must carry string content, status, id, and priority.
func parseTodos(args map[string]any) ([]TodoItem, bool) {
	raw, ok := args["todos"].([]any)
	if !ok {
		return nil, false
	}

	todos := make([]TodoItem, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		content, ok1 := m["content"].(string)
		st, ok2 := m["status"].(string)
		id, ok3 := m["id"].(string)
		priority, ok4 := m["priority"].(string)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, false
		}
		todos = append(todos, TodoItem{Content: content, Status: st, ID: id, Priority: priority})
	}
	return todos, true
}

// stringArg extracts a string argument, tolerating nil maps and wrong types.
func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}
