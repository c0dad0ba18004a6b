package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/itemdesk/internal/app"
	"github.com/starford/itemdesk/internal/itemstore"
	"github.com/starford/itemdesk/internal/models"
	"github.com/starford/itemdesk/internal/notify"
	"github.com/starford/itemdesk/internal/session"
	"github.com/starford/itemdesk/internal/testutil"
)

func testServer(t *testing.T, signIn bool) *Server {
	t.Helper()
	backend := testutil.TestBackend(t)
	_, store := testutil.TestStore(t)
	logger := testutil.Logger()

	notes := notify.New(0, notify.WithLogger(logger))
	provider, err := session.NewLocalProvider(store, "test", "Test@1234")
	if err != nil {
		t.Fatal(err)
	}
	sess := session.NewManager(store, provider, session.StaticToken(testutil.BackendToken), notes, logger, session.WithRegistrar(provider))
	items := itemstore.NewStore(itemstore.NewClient(backend.URL, 5*time.Second, sess), notes, logger)
	ctl := app.New(sess, items, notes, logger)

	if signIn {
		if err := ctl.SignIn(context.Background(), "test", "Test@1234"); err != nil {
			t.Fatal(err)
		}
	}
	return New(ctl, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_items":
		result, err = srv.listItems(ctx, req)
	case "search_items":
		result, err = srv.searchItems(ctx, req)
	case "get_item":
		result, err = srv.getItem(ctx, req)
	case "create_item":
		result, err = srv.createItem(ctx, req)
	case "update_item":
		result, err = srv.updateItem(ctx, req)
	case "delete_item":
		result, err = srv.deleteItem(ctx, req)
	case "get_item_contract":
		result, err = srv.getItemContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeItem(t *testing.T, r *mcp.CallToolResult) models.Item {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var it models.Item
	if err := json.Unmarshal([]byte(resultText(r)), &it); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return it
}

func decodeItems(t *testing.T, r *mcp.CallToolResult) []models.Item {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var items []models.Item
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return items
}

func TestItemLifecycle(t *testing.T) {
	srv := testServer(t, true)

	created := decodeItem(t, callTool(t, srv, "create_item", map[string]interface{}{
		"name":        "Widget",
		"description": "A small part",
		"tags":        "metal, , small",
	}))
	if created.ID == "" {
		t.Fatal("no id assigned")
	}
	if strings.Join(created.Tags, "|") != "metal|small" {
		t.Errorf("tags = %v", created.Tags)
	}

	got := decodeItem(t, callTool(t, srv, "get_item", map[string]interface{}{"id": created.ID}))
	if got.Name != "Widget" {
		t.Errorf("get name = %q", got.Name)
	}

	updated := decodeItem(t, callTool(t, srv, "update_item", map[string]interface{}{
		"id": created.ID, "name": "Gizmo", "description": "renamed", "category": "parts",
	}))
	if updated.Name != "Gizmo" || updated.Category != "parts" {
		t.Errorf("updated = %+v", updated)
	}

	list := decodeItems(t, callTool(t, srv, "list_items", map[string]interface{}{}))
	if len(list) != 1 {
		t.Fatalf("list = %d items", len(list))
	}

	r := callTool(t, srv, "delete_item", map[string]interface{}{"id": created.ID})
	if resultText(r) != "deleted: "+created.ID {
		t.Errorf("delete result = %q", resultText(r))
	}
	if n := len(decodeItems(t, callTool(t, srv, "list_items", map[string]interface{}{}))); n != 0 {
		t.Errorf("list after delete = %d", n)
	}
}

func TestSearchItems(t *testing.T) {
	srv := testServer(t, true)
	for _, name := range []string{"Widget", "Gadget"} {
		callTool(t, srv, "create_item", map[string]interface{}{"name": name, "description": "d"})
	}

	hits := decodeItems(t, callTool(t, srv, "search_items", map[string]interface{}{"query": "WIDG"}))
	if len(hits) != 1 || hits[0].Name != "Widget" {
		t.Errorf("hits = %+v", hits)
	}

	if r := callTool(t, srv, "search_items", map[string]interface{}{}); !r.IsError {
		t.Error("missing query should be an error")
	}
}

func TestCreateItem_MissingFields(t *testing.T) {
	srv := testServer(t, true)
	r := callTool(t, srv, "create_item", map[string]interface{}{"name": "only name"})
	if !r.IsError {
		t.Error("expected error for missing description")
	}
}

func TestGetItem_Missing(t *testing.T) {
	srv := testServer(t, true)
	r := callTool(t, srv, "get_item", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing item")
	}
}

func TestTools_RequireSignIn(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "list_items", map[string]interface{}{})
	if !r.IsError || !strings.Contains(resultText(r), "sign in required") {
		t.Errorf("list while signed out = %q", resultText(r))
	}
}

func TestItemContract(t *testing.T) {
	srv := testServer(t, false)
	r := callTool(t, srv, "get_item_contract", nil)
	if !strings.Contains(resultText(r), "Itemdesk Item Format Contract") {
		t.Error("contract text missing")
	}

	contents, err := srv.readItemFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}

func TestUpdateItem_EmptyOptionalFieldsKeepStoredValues(t *testing.T) {
	srv := testServer(t, true)
	created := decodeItem(t, callTool(t, srv, "create_item", map[string]interface{}{
		"name": "Widget", "description": "d", "category": "old", "tags": "x, y",
	}))

	updated := decodeItem(t, callTool(t, srv, "update_item", map[string]interface{}{
		"id": created.ID, "name": "Widget 2", "description": "d2", "category": "", "tags": "",
	}))
	if updated.Name != "Widget 2" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Category != "old" || strings.Join(updated.Tags, "|") != "x|y" {
		t.Errorf("optional fields changed: category=%q tags=%v", updated.Category, updated.Tags)
	}

	// A non-string optional value is ignored rather than failing the call.
	updated = decodeItem(t, callTool(t, srv, "update_item", map[string]interface{}{
		"id": created.ID, "name": "Widget 3", "description": "d3", "category": 42,
	}))
	if updated.Category != "old" {
		t.Errorf("category = %q after non-string value", updated.Category)
	}
}
