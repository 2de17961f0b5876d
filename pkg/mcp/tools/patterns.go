// Package tools provides the MCP tools of the pattern catalog.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// PatternToolDeps contains dependencies for pattern tools.
type PatternToolDeps struct {
	DefinitionService     services.DefinitionService
	ImplementationService services.ImplementationService
	ExportService         services.ExportService
	Logger                *zap.Logger
}

// RegisterPatternTools registers the read-only catalog tools.
func RegisterPatternTools(s *server.MCPServer, deps *PatternToolDeps) {
	registerListPatternsTool(s, deps)
	registerGetPatternDocumentTool(s, deps)
}

type listPatternsResponse struct {
	Patterns []patternSummary `json:"patterns"`
	Count    int              `json:"count"`
}

type patternSummary struct {
	ID              string                  `json:"id"`
	Category        string                  `json:"category"`
	CategoryLabel   string                  `json:"category_label"`
	Title           string                  `json:"title"`
	Problem         string                  `json:"problem"`
	WhenToUse       string                  `json:"when_to_use"`
	Implementations []implementationSummary `json:"implementations"`
}

type implementationSummary struct {
	UUID          string `json:"uuid"`
	AuthorName    string `json:"author_name"`
	Status        string `json:"status"`
	IsPremium     bool   `json:"is_premium"`
	SystemDefault bool   `json:"system_default"`
	HasSAS        bool   `json:"has_sas"`
	HasR          bool   `json:"has_r"`
}

func registerListPatternsTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"list_patterns",
		mcp.WithDescription(
			"Lists pattern definitions in catalog order with the implementations visible to the caller. "+
				"Use the returned implementation uuids with get_pattern_document.",
		),
		mcp.WithString(
			"category",
			mcp.Description("Optional category code (e.g. IMP, DER) to restrict the listing"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		actor := auth.PrincipalFromContext(ctx)
		category := strings.TrimSpace(req.GetString("category", ""))

		defs, err := deps.DefinitionService.List(ctx, actor, services.DefinitionListFilter{Category: category})
		if err != nil {
			return serviceErrorResult(err)
		}
		impls, err := deps.ImplementationService.List(ctx, actor, services.ImplementationListFilter{})
		if err != nil {
			return serviceErrorResult(err)
		}

		byPattern := make(map[string][]implementationSummary)
		for _, impl := range impls {
			byPattern[impl.PatternID] = append(byPattern[impl.PatternID], toImplementationSummary(impl))
		}

		resp := listPatternsResponse{Patterns: make([]patternSummary, 0, len(defs))}
		for _, def := range defs {
			summaries := byPattern[def.ID]
			if summaries == nil {
				summaries = []implementationSummary{}
			}
			resp.Patterns = append(resp.Patterns, patternSummary{
				ID:              def.ID,
				Category:        string(def.Category),
				CategoryLabel:   def.Category.Label(),
				Title:           def.Title,
				Problem:         def.Problem,
				WhenToUse:       def.WhenToUse,
				Implementations: summaries,
			})
		}
		resp.Count = len(resp.Patterns)

		jsonResult, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func toImplementationSummary(impl *models.PatternImplementation) implementationSummary {
	return implementationSummary{
		UUID:          impl.UUID.String(),
		AuthorName:    impl.AuthorName,
		Status:        impl.Status,
		IsPremium:     impl.IsPremium,
		SystemDefault: impl.IsSystemDefault(),
		HasSAS:        strings.TrimSpace(impl.SASCode) != "",
		HasR:          strings.TrimSpace(impl.RCode) != "",
	}
}

func registerGetPatternDocumentTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"get_pattern_document",
		mcp.WithDescription(
			"Renders the markdown document for one pattern, exactly as it appears in an export. "+
				"Without implementation_uuid the pattern's system default implementation is used.",
		),
		mcp.WithString(
			"pattern_id",
			mcp.Required(),
			mcp.Description("Pattern definition id (e.g. IMP-001)"),
		),
		mcp.WithString(
			"implementation_uuid",
			mcp.Description("Optional implementation uuid to render instead of the system default"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		patternID, err := req.RequireString("pattern_id")
		if err != nil {
			return NewErrorResult("validation_error", "pattern_id is required"), nil
		}
		patternID = strings.ToUpper(strings.TrimSpace(patternID))

		var implID *uuid.UUID
		if raw := strings.TrimSpace(req.GetString("implementation_uuid", "")); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				return NewErrorResultWithDetails("validation_error", "implementation_uuid is not a valid uuid",
					map[string]string{"id": raw}), nil
			}
			implID = &parsed
		}

		doc, err := deps.ExportService.RenderPattern(ctx, auth.PrincipalFromContext(ctx), patternID, implID)
		if err != nil {
			return serviceErrorResult(err)
		}

		jsonResult, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
