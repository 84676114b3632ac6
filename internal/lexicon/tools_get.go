package lexicon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grindlab/exicon/internal/crossref"
	"github.com/grindlab/exicon/internal/store"
)

// GetArgument defines get parameters.
type GetArgument struct {
	Slug string `json:"slug" jsonschema_description:"Exercise slug (e.g., bear-crawl)"`
}

// GetHandler handles the get MCP tool.
type GetHandler struct {
	service *Service
}

// NewGetHandler creates a new get handler.
func NewGetHandler(service *Service) *GetHandler {
	return &GetHandler{service: service}
}

// Handle fetches one exercise by slug and returns formatted content.
func (h *GetHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args GetArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult("Lexicon is not available yet. Please try again shortly."), nil, nil
	}

	slug := strings.TrimSpace(args.Slug)
	if slug == "" {
		return errorResult("Slug cannot be empty"), nil, nil
	}

	ex, err := h.service.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResult(fmt.Sprintf("Exercise not found: %s", slug)), nil, nil
		}
		return errorResult(fmt.Sprintf("Error loading exercise: %s", err)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n", ex.Name))
	sb.WriteString(fmt.Sprintf("**Slug**: %s\n", ex.Slug))
	sb.WriteString(fmt.Sprintf("**Status**: %s\n", ex.Status))
	if len(ex.Aliases) > 0 {
		sb.WriteString(fmt.Sprintf("**Aliases**: %s\n", strings.Join(ex.Aliases, ", ")))
	}
	if len(ex.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("**Tags**: %s\n", strings.Join(ex.Tags, ", ")))
	}
	if desc := strings.TrimSpace(ex.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", desc))
	}
	if body := strings.TrimSpace(ex.Text); body != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", body))
	}

	// Surface linked exercises so clients can follow references without
	// parsing the token format themselves.
	links := crossref.ParseLinks(ex.SourceText())
	if len(links) > 0 {
		sb.WriteString("\n**Related**: ")
		seen := make(map[string]bool)
		var related []string
		for _, link := range links {
			if !seen[link.Slug] {
				seen[link.Slug] = true
				related = append(related, "@"+link.Slug)
			}
		}
		sb.WriteString(strings.Join(related, ", "))
		sb.WriteString("\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *GetHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_exercise",
		Description: "Fetch a single exercise from the lexicon by its slug",
	}
}

// RegisterGetTool registers the get tool with an MCP server.
func RegisterGetTool(server *mcp.Server, service *Service) {
	handler := NewGetHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
