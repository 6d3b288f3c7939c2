package opencode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPart_DecodeToolPart(t *testing.T) {
	raw := `{"id":"prt_01","sessionID":"ses_01","messageID":"msg_01","type":"tool","callID":"call_01","tool":"bash","state":{"status":"running","input":{"command":"ls","description":"list files"},"title":"ls"}}`

	var part Part
	require.NoError(t, json.Unmarshal([]byte(raw), &part))
	require.True(t, part.IsTool())
	require.Equal(t, "msg_01", part.MessageID)
	require.Equal(t, "call_01", part.CallID)
	require.Equal(t, ToolRunning, part.State.Status)

	args := part.State.Args()
	require.Equal(t, "list files", args["description"])
}

func TestPart_DecodeTextPart(t *testing.T) {
	raw := `{"id":"prt_02","messageID":"msg_01","type":"text","text":"Hi there"}`

	var part Part
	require.NoError(t, json.Unmarshal([]byte(raw), &part))
	require.True(t, part.IsText())
	require.Equal(t, "Hi there", part.Text)
}

func TestMessage_DecodeEnvelope(t *testing.T) {
	raw := `{"info":{"id":"msg_01","role":"assistant","sessionID":"ses_01","time":{"created":1,"completed":2},"modelID":"claude","providerID":"anthropic","path":{"cwd":"/repo","root":"/repo"},"tokens":{"input":10,"output":5}},"parts":[{"type":"step-start"},{"type":"text","text":"hi"}]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.True(t, msg.Info.Completed())
	require.Equal(t, "/repo", msg.Info.Cwd())
	require.Len(t, msg.Parts, 2)
	require.Equal(t, PartStepStart, msg.Parts[0].Type)
}

func TestMessageInfo_CwdWithoutPath(t *testing.T) {
	require.Equal(t, "", MessageInfo{}.Cwd())
}

func TestToolState_ArgsMalformedInput(t *testing.T) {
	state := &ToolState{Status: ToolRunning, Input: json.RawMessage(`{not json`)}
	require.Nil(t, state.Args())
}

func TestToolState_ArgsNilReceiver(t *testing.T) {
	var state *ToolState
	require.Nil(t, state.Args())
}

func TestToolStatus_Terminal(t *testing.T) {
	require.False(t, ToolPending.Terminal())
	require.False(t, ToolRunning.Terminal())
	require.True(t, ToolCompleted.Terminal())
	require.True(t, ToolError.Terminal())
}

func TestToolStatus_RankOrdersLifecycle(t *testing.T) {
	require.Less(t, ToolPending.Rank(), ToolRunning.Rank())
	require.Less(t, ToolRunning.Rank(), ToolCompleted.Rank())
	require.Equal(t, ToolCompleted.Rank(), ToolError.Rank())
	require.Equal(t, 0, ToolStatus("bogus").Rank())
}

func TestAPIError_DisplayMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{"nil", nil, "unknown error"},
		{"nested data", &APIError{Name: "APIError", Data: &APIErrorData{Message: "rate limited"}}, "rate limited"},
		{"top level message", &APIError{Message: "boom"}, "boom"},
		{"name only", &APIError{Name: "ProviderAuthError"}, "ProviderAuthError"},
		{"empty", &APIError{}, "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.DisplayMessage())
		})
	}
}

func TestEventFrame_Decode(t *testing.T) {
	raw := `{"type":"message.part.updated","properties":{"part":{"type":"text","messageID":"msg_01","text":"Hi"}}}`

	var frame EventFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	require.Equal(t, EventMessagePartUpdated, frame.Type)

	var props MessagePartUpdatedProps
	require.NoError(t, json.Unmarshal(frame.Properties, &props))
	require.Equal(t, "Hi", props.Part.Text)
}
