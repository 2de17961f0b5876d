package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
)

// ToolCallLogger records every tool invocation with the calling principal,
// its duration and whether the tool reported an error.
type ToolCallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolCallLogger creates a ToolCallLogger. A nil logger disables output.
func NewToolCallLogger(logger *zap.Logger) *ToolCallLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolCallLogger{logger: logger.Named("mcp-tools")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (l *ToolCallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(l.beforeCallTool)
	hooks.AddAfterCallTool(l.afterCallTool)
	hooks.AddOnError(l.onError)
	return hooks
}

func (l *ToolCallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	l.startTimes.Store(id, time.Now())
}

func (l *ToolCallLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := l.fields(ctx, id, req)
	isError := result != nil && result.IsError
	fields = append(fields, zap.Bool("tool_error", isError))

	if isError {
		l.logger.Info("MCP tool call returned an error result", fields...)
		return
	}
	l.logger.Debug("MCP tool call", fields...)
}

func (l *ToolCallLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	fields := append(l.fields(ctx, id, req), zap.Error(err))
	l.logger.Error("MCP tool call failed", fields...)
}

func (l *ToolCallLogger) fields(ctx context.Context, id any, req *mcplib.CallToolRequest) []zap.Field {
	start := time.Now()
	if v, ok := l.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}
	principal := auth.PrincipalFromContext(ctx)
	return []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Any("arguments", sanitizeArguments(req.GetArguments())),
		zap.String("user_id", principal.ID),
		zap.String("role", principal.Role),
		zap.Duration("duration", time.Since(start)),
	}
}

const maxLoggedArgumentLength = 200

var sensitiveKeywords = []string{"password", "secret", "token", "key", "credential"}

// sanitizeArguments redacts sensitive fields and truncates long values.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			result[k] = logging.RedactedText
			continue
		}
		if str, ok := v.(string); ok {
			result[k] = logging.TruncateString(str, maxLoggedArgumentLength)
			continue
		}
		result[k] = v
	}
	return result
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
