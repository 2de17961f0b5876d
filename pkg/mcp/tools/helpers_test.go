package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

type toolResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool executes an MCP tool via the server's HandleMessage method.
func callTool(t *testing.T, ctx context.Context, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()

	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	reqBytes, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  params,
	})
	require.NoError(t, err)

	resultBytes, err := json.Marshal(s.HandleMessage(ctx, reqBytes))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(resultBytes, &resp))
	return resp
}

// text returns the first text content of a successful call.
func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected protocol error")
	require.NotNil(t, r.Result)
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}

// listToolNames returns the tools advertised by tools/list.
func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}
