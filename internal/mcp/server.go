// Package mcp assembles the MCP server and its tool registrations.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grindlab/exicon/internal/lexicon"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	Lexicon *lexicon.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Lexicon != nil {
		lexicon.RegisterSearchTool(s, cfg.Lexicon)
		lexicon.RegisterGetTool(s, cfg.Lexicon)
	}

	return s
}
