package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args map[string]any
}

type fakeCaller struct {
	calls  []call
	result any
	err    error
}

func (f *fakeCaller) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.result, f.err
}

// roundTrip sends a JSON-RPC message through the server and decodes the reply.
func roundTrip(t *testing.T, s *Server, msg string) map[string]any {
	t.Helper()
	reply := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(msg))
	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestServer_ListsAllTools(t *testing.T) {
	s := NewServer(&fakeCaller{}, "test")

	out := roundTrip(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "unexpected reply: %v", out)
	tools, ok := result["tools"].([]any)
	require.True(t, ok)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, pipeline.ToolNames(), names)
}

func TestServer_CallForwardsArguments(t *testing.T) {
	caller := &fakeCaller{result: map[string]any{"severity": "high"}}
	s := NewServer(caller, "test")

	out := roundTrip(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"simulate_chaos_scenario","arguments":{"scenario_type":"cpu_spike"}}}`)

	require.Len(t, caller.calls, 1)
	assert.Equal(t, pipeline.ToolChaos, caller.calls[0].name)
	assert.Equal(t, "cpu_spike", caller.calls[0].args["scenario_type"])

	result := out["result"].(map[string]any)
	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.JSONEq(t, `{"severity":"high"}`, content[0].(map[string]any)["text"].(string))
}

func TestToolHandler(t *testing.T) {
	tests := []struct {
		name    string
		caller  *fakeCaller
		isError bool
		text    string
	}{
		{
			name:   "result is indented JSON",
			caller: &fakeCaller{result: map[string]int{"health_score": 90}},
			text:   "{\n  \"health_score\": 90\n}",
		},
		{
			name:    "tool error",
			caller:  &fakeCaller{err: errors.New("message is required")},
			isError: true,
			text:    "Tool execution failed: message is required",
		},
		{
			name:    "unencodable result",
			caller:  &fakeCaller{result: make(chan int)},
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(tt.caller, "test")
			handler := s.createToolHandler(pipeline.ToolNotify)

			res, err := handler(context.Background(), mcp.CallToolRequest{
				Params: mcp.CallToolParams{Name: pipeline.ToolNotify, Arguments: map[string]any{"message": "hi"}},
			})

			require.NoError(t, err)
			assert.Equal(t, tt.isError, res.IsError)
			require.Len(t, res.Content, 1)
			text := res.Content[0].(mcp.TextContent).Text
			if tt.text != "" {
				assert.Equal(t, tt.text, text)
			}
		})
	}
}

func TestServer_DeploymentGatePrompt(t *testing.T) {
	s := NewServer(&fakeCaller{}, "test")

	out := roundTrip(t, s, `{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"deployment_gate","arguments":{"environment":"staging"}}}`)

	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "unexpected reply: %v", out)
	messages := result["messages"].([]any)
	require.Len(t, messages, 1)
	text := messages[0].(map[string]any)["content"].(map[string]any)["text"].(string)
	assert.Contains(t, text, "The target environment is staging.")
	assert.Contains(t, text, "analyze_system_health")
}
