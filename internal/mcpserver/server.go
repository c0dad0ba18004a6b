// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Itemdesk item tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/render"
)

const formatURI = "itemdesk://item-format"

// Controller is the application surface the tools drive.
type Controller interface {
	Refresh(ctx context.Context) ([]models.Item, error)
	Search(query string) []models.Item
	Get(ctx context.Context, id string) (models.Item, error)
	Create(ctx context.Context, d models.Draft) (models.Item, error)
	Update(ctx context.Context, id string, d models.Draft) (models.Item, error)
	Delete(ctx context.Context, id string) error
}

// Server wraps the MCP server with Itemdesk tools.
type Server struct {
	mcp *server.MCPServer
	ctl Controller
}

// New creates a new MCP server with all item tools registered.
func New(ctl Controller, version string) *Server {
	s := &Server{ctl: ctl}

	s.mcp = server.NewMCPServer(
		"Itemdesk",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("Fetch every item from the collection."),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Case-insensitive substring search over item name, description, category and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Fetch one item by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create an item. The server assigns id and timestamps. "+
			"See the itemdesk://item-format resource for field rules."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Item description")),
		mcp.WithString("category", mcp.Description("Optional category")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("update_item",
		mcp.WithDescription("Update the user fields of an existing item. "+
			"An empty category or tags value keeps the stored one."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Item description")),
		mcp.WithString("category", mcp.Description("Optional category")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
	), s.updateItem)

	s.mcp.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Delete an item by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	), s.deleteItem)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the item field contract. Call this before creating or updating items."),
	), s.getItemContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Item Format Contract",
			mcp.WithResourceDescription("Fields of an item and which of them the server owns."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func draftFrom(req mcp.CallToolRequest) (models.Draft, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return models.Draft{}, err
	}
	desc, err := req.RequireString("description")
	if err != nil {
		return models.Draft{}, err
	}
	form := render.FormState{
		Name:        name,
		Description: desc,
		Category:    req.GetString("category", ""),
		Tags:        req.GetString("tags", ""),
	}
	return form.Draft(), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.ctl.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.ctl.Refresh(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.ctl.Search(query)), nil
}

func (s *Server) getItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ctl.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get %s: %v", id, err)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := draftFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ctl.Create(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create: %v", err)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) updateItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := draftFrom(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.ctl.Update(ctx, id, d)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update %s: %v", id, err)), nil
	}
	return jsonResult(it), nil
}

func (s *Server) deleteItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctl.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete %s: %v", id, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ItemFormatContract), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}
