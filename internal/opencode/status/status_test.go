package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestActionMessage_KnownTools(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"read", "Reading file..."},
		{"edit", "Editing file..."},
		{"write", "Writing file..."},
		{"bash", "Writing command..."},
		{"webfetch", "Fetching from the web..."},
		{"todowrite", "Planning..."},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			require.Equal(t, tt.want, ActionMessage(tt.tool))
		})
	}
}

func TestActionMessage_UnknownTool(t *testing.T) {
	require.Equal(t, "Working...", ActionMessage("teleport"))
	require.Equal(t, "Working...", ActionMessage(""))
}

func TestActionMessage_AllKnownToolsNonEmpty(t *testing.T) {
	for tool := range actionMessages {
		require.NotEmpty(t, ActionMessage(tool), "tool %q", tool)
	}
}

func TestDisplayName_StripsMCPPrefixes(t *testing.T) {
	require.Equal(t, "Search", DisplayName("mcp_search"))
	require.Equal(t, "Deploy", DisplayName("localmcp_deploy"))
}

func TestDisplayName_Webfetch(t *testing.T) {
	require.Equal(t, "Fetch", DisplayName("webfetch"))
	require.Equal(t, "Fetch", DisplayName("mcp_webfetch"))
}

func TestDisplayName_TitleCases(t *testing.T) {
	require.Equal(t, "Read", DisplayName("read"))
	require.Equal(t, "Bash", DisplayName("bash"))
}

func TestDisplayName_EmptyInput(t *testing.T) {
	require.Equal(t, "Tool", DisplayName(""))
	require.Equal(t, "Tool", DisplayName("mcp_"))
}

func TestRelativePath_NoPath(t *testing.T) {
	require.Equal(t, "file", RelativePath("", ""))
	require.Equal(t, "file", RelativePath("", "/a/b"))
}

func TestRelativePath_CwdPrefix(t *testing.T) {
	require.Equal(t, "c.ts", RelativePath("/a/b/c.ts", "/a/b"))
	require.Equal(t, "src/App.tsx", RelativePath("/repo/src/App.tsx", "/repo"))
}

func TestRelativePath_NoCwd(t *testing.T) {
	require.Equal(t, "c.ts", RelativePath("/a/b/c.ts", ""))
}

func TestRelativePath_CwdDoesNotPrefix(t *testing.T) {
	require.Equal(t, "c.ts", RelativePath("/x/c.ts", "/a/b"))
}

func TestRelativePath_TrailingSlashCwd(t *testing.T) {
	require.Equal(t, "c.ts", RelativePath("/a/b/c.ts", "/a/b/"))
}

func TestRelativePath_NeverEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		filePath := rapid.String().Draw(t, "filePath")
		cwd := rapid.String().Draw(t, "cwd")
		require.NotEmpty(t, RelativePath(filePath, cwd))
	})
}

func TestContextualTitle_FileTools(t *testing.T) {
	args := map[string]any{"filePath": "/repo/src/App.tsx"}
	require.Equal(t, "Read src/App.tsx", ContextualTitle("read", args, "/repo"))
	require.Equal(t, "Edit src/App.tsx", ContextualTitle("edit", args, "/repo"))
	require.Equal(t, "Write src/App.tsx", ContextualTitle("write", args, "/repo"))
}

func TestContextualTitle_FileToolWithoutPath(t *testing.T) {
	require.Equal(t, "Read file", ContextualTitle("read", nil, "/repo"))
}

func TestContextualTitle_Bash(t *testing.T) {
	require.Equal(t, "Bash run tests",
		ContextualTitle("bash", map[string]any{"description": "run tests"}, ""))
	require.Equal(t, "Bash command", ContextualTitle("bash", nil, ""))
}

func TestContextualTitle_Webfetch(t *testing.T) {
	require.Equal(t, "Fetch example.com",
		ContextualTitle("webfetch", map[string]any{"url": "https://example.com/docs"}, ""))
	require.Equal(t, "Fetch URL", ContextualTitle("webfetch", nil, ""))
}

func TestContextualTitle_WebfetchUnparsableURL(t *testing.T) {
	title := ContextualTitle("webfetch", map[string]any{"url": "::not a url::"}, "")
	require.True(t, strings.HasPrefix(title, "Fetch "), "got %q", title)
}

func TestContextualTitle_WebfetchLongRawURL(t *testing.T) {
	raw := "::" + strings.Repeat("x", 100)
	title := ContextualTitle("webfetch", map[string]any{"url": raw}, "")
	require.True(t, strings.HasSuffix(title, "..."), "got %q", title)
	require.Less(t, len(title), len("Fetch ")+len(raw))
}

func TestContextualTitle_TodoWrite(t *testing.T) {
	args := map[string]any{"todos": []any{
		map[string]any{"content": "Fix bug", "status": "in_progress", "id": "1", "priority": "high"},
	}}
	require.Equal(t, "Working on: Fix bug", ContextualTitle("todowrite", args, ""))
}

func TestContextualTitle_Default(t *testing.T) {
	require.Equal(t, "Grep", ContextualTitle("grep", nil, ""))
}

func todo(content, st string) map[string]any {
	return map[string]any{"content": content, "status": st, "id": content, "priority": "medium"}
}

func TestTodoPhase_EmptyList(t *testing.T) {
	require.Equal(t, "Plan", TodoPhase(map[string]any{"todos": []any{}}))
}

func TestTodoPhase_InProgressWins(t *testing.T) {
	args := map[string]any{"todos": []any{
		todo("First", "completed"),
		todo("Fix bug", "in_progress"),
		todo("Later", "in_progress"),
	}}
	require.Equal(t, "Working on: Fix bug", TodoPhase(args))
}

func TestTodoPhase_PartialCompletion(t *testing.T) {
	args := map[string]any{"todos": []any{
		todo("a", "completed"),
		todo("b", "completed"),
		todo("c", "pending"),
		todo("d", "pending"),
		todo("e", "pending"),
	}}
	require.Equal(t, "Completed: 2/5", TodoPhase(args))
}

func TestTodoPhase_AllCompleted(t *testing.T) {
	args := map[string]any{"todos": []any{
		todo("a", "completed"),
		todo("b", "completed"),
	}}
	require.Equal(t, "Plan", TodoPhase(args))
}

func TestTodoPhase_MalformedTodos(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"nil args", nil},
		{"missing todos", map[string]any{}},
		{"todos not a list", map[string]any{"todos": "nope"}},
		{"element not a map", map[string]any{"todos": []any{42}}},
		{"missing status", map[string]any{"todos": []any{
			map[string]any{"content": "x", "id": "1", "priority": "low"},
		}}},
		{"non-string content", map[string]any{"todos": []any{
			map[string]any{"content": 7, "status": "pending", "id": "1", "priority": "low"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, "Plan", TodoPhase(tt.args))
		})
	}
}
