package lexicon

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/search"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query string   `json:"query,omitempty" jsonschema_description:"Free-text query. Empty lists exercises by recency."`
	Tags  []string `json:"tags,omitempty" jsonschema_description:"Filter to exercises carrying any of these tags"`
	Page  int      `json:"page,omitempty" jsonschema_description:"Zero-based page number"`
}

// SearchHandler handles the search MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult("Search is not available yet. Please try again shortly."), nil, nil
	}

	if args.Page < 0 {
		return errorResult("Page cannot be negative"), nil, nil
	}

	filters := search.Filters{
		Status: domain.StatusActive,
		Tags:   args.Tags,
	}

	pageSize := h.service.Settings().Search.MaxResults
	result, err := h.service.Executor().Search(ctx, args.Query, filters, args.Page, pageSize)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return h.formatResults(result, args), nil, nil
}

// formatResults formats an executor result for the MCP response.
func (h *SearchHandler) formatResults(result *search.Result, args SearchArgument) *mcp.CallToolResult {
	if result.TotalCount == 0 {
		text := "No exercises found"
		if strings.TrimSpace(args.Query) != "" {
			text = fmt.Sprintf("No exercises found for query: %s", args.Query)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d exercises (page %d):\n\n", result.TotalCount, args.Page))

	for i, ex := range result.Results {
		sb.WriteString(fmt.Sprintf("### %d. %s (@%s)\n", i+1, ex.Name, ex.Slug))
		if len(ex.Aliases) > 0 {
			sb.WriteString(fmt.Sprintf("**Aliases**: %s\n", strings.Join(ex.Aliases, ", ")))
		}
		if len(ex.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("**Tags**: %s\n", strings.Join(ex.Tags, ", ")))
		}
		if desc := strings.TrimSpace(ex.Description); desc != "" {
			sb.WriteString(fmt.Sprintf("%s\n", desc))
		}
		sb.WriteString("\n")
	}

	shown := args.Page*len(result.Results) + len(result.Results)
	if result.TotalCount > shown {
		sb.WriteString(fmt.Sprintf("... and %d more results\n", result.TotalCount-shown))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_exercises",
		Description: "Search the exercise lexicon with fuzzy, field-weighted matching",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
