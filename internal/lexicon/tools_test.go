package lexicon

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grindlab/exicon/internal/domain"
)

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestSearchHandler_NotReady(t *testing.T) {
	settings := testSettings(t, t.TempDir())
	svc, err := NewService(settings)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	handler := NewSearchHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "burpee"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result when service not ready")
	}
}

func TestSearchHandler_FindsExercise(t *testing.T) {
	svc := setupService(t,
		&domain.Exercise{ID: "1", Slug: "burpee", Name: "Burpee", Description: "Squat thrust.", Tags: []string{"cardio"}, Status: domain.StatusActive},
		&domain.Exercise{ID: "2", Slug: "merkin", Name: "Merkin", Description: "Push-up.", Status: domain.StatusActive},
	)

	handler := NewSearchHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "burpee"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "Burpee") || !strings.Contains(text, "@burpee") {
		t.Errorf("result text missing hit: %s", text)
	}
}

func TestSearchHandler_NoResults(t *testing.T) {
	svc := setupService(t,
		&domain.Exercise{ID: "1", Slug: "burpee", Name: "Burpee", Description: "Squat thrust.", Status: domain.StatusActive},
	)

	handler := NewSearchHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Query: "zzzzzzz"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Error("no results must not be an error result")
	}
	if !strings.Contains(textOf(t, result), "No exercises found") {
		t.Errorf("result text = %s", textOf(t, result))
	}
}

func TestSearchHandler_EmptyQueryLists(t *testing.T) {
	svc := setupService(t,
		&domain.Exercise{ID: "1", Slug: "burpee", Name: "Burpee", Description: "Squat thrust.", Status: domain.StatusActive},
		&domain.Exercise{ID: "2", Slug: "merkin", Name: "Merkin", Description: "Push-up.", Status: domain.StatusActive},
	)

	handler := NewSearchHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := textOf(t, result)
	if !strings.Contains(text, "Found 2 exercises") {
		t.Errorf("result text = %s", text)
	}
}

func TestSearchHandler_NegativePage(t *testing.T) {
	svc := setupService(t)

	handler := NewSearchHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, SearchArgument{Page: -1})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for negative page")
	}
}

func TestGetHandler_FindsBySlug(t *testing.T) {
	svc := setupService(t,
		&domain.Exercise{
			ID:          "1",
			Slug:        "murph",
			Name:        "Murph",
			Description: "Run, then do a [burpee](@burpee) ladder.",
			Tags:        []string{"hero"},
			Status:      domain.StatusActive,
		},
	)

	handler := NewGetHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, GetArgument{Slug: "murph"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, result))
	}

	text := textOf(t, result)
	if !strings.Contains(text, "# Murph") {
		t.Errorf("missing title: %s", text)
	}
	if !strings.Contains(text, "**Related**: @burpee") {
		t.Errorf("missing related links: %s", text)
	}
}

func TestGetHandler_NotFound(t *testing.T) {
	svc := setupService(t)

	handler := NewGetHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, GetArgument{Slug: "missing"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for unknown slug")
	}
	if !strings.Contains(textOf(t, result), "not found") {
		t.Errorf("result text = %s", textOf(t, result))
	}
}

func TestGetHandler_EmptySlug(t *testing.T) {
	svc := setupService(t)

	handler := NewGetHandler(svc)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, GetArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for empty slug")
	}
}

func TestToolDefinitions(t *testing.T) {
	settings := testSettings(t, t.TempDir())
	svc, err := NewService(settings)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	if def := NewSearchHandler(svc).GetToolDefinition(); def.Name != "search_exercises" {
		t.Errorf("search tool name = %s", def.Name)
	}
	if def := NewGetHandler(svc).GetToolDefinition(); def.Name != "get_exercise" {
		t.Errorf("get tool name = %s", def.Name)
	}
}
