// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the list service.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/insync/internal/adapters/server/common"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the list tools.
func NewHandler(cfg Config, lists common.ListService) (*Handler, error) {
	if lists == nil {
		return nil, fmt.Errorf("list service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerListTools(mcpSrv, lists)
	registerItemTools(mcpSrv, lists)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "insync"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.Trim(strings.TrimSpace(cfg.EndpointPath), "/")
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "mcp"
	}
	cfg.EndpointPath = "/" + cfg.EndpointPath
	return cfg
}

// registerListTools registers the read-only list tools.
func registerListTools(srv *mcpserver.MCPServer, lists common.ListService) {
	srv.AddTool(
		mcp.NewTool(
			"insync.list_lists",
			mcp.WithDescription("List every outline list with its id and name."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := lists.ListLists(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(map[string]any{"lists": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"insync.get_list",
			mcp.WithDescription("Return one list with its ordered items."),
			mcp.WithString("ref", mcp.Required(), mcp.Description("List id or list name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ref, err := req.RequireString("ref")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			view, err := lists.GetList(ctx, ref)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(view)
		},
	)
}

// registerItemTools registers the item mutation tools.
func registerItemTools(srv *mcpserver.MCPServer, lists common.ListService) {
	srv.AddTool(
		mcp.NewTool(
			"insync.create_item_after",
			mcp.WithDescription("Insert one blank item directly after an existing item."),
			mcp.WithString("after_item_id", mcp.Required(), mcp.Description("Item the new item follows")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			afterID, err := req.RequireString("after_item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := lists.CreateItemAfter(ctx, afterID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"insync.update_item_text",
			mcp.WithDescription("Replace the text of one item."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Item identifier")),
			mcp.WithString("text", mcp.Required(), mcp.Description("New item text, may be empty")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			itemID, err := req.RequireString("item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := lists.UpdateItemText(ctx, itemID, text)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"insync.set_item_completed",
			mcp.WithDescription("Mark one item done or open."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Item identifier")),
			mcp.WithBoolean("completed", mcp.Required(), mcp.Description("True marks the item done, false reopens it")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			itemID, err := req.RequireString("item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			done, err := req.RequireBool("completed")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := lists.SetItemCompleted(ctx, itemID, done)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"insync.delete_item",
			mcp.WithDescription("Delete one item. The last item of a list cannot be deleted."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Item identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			itemID, err := req.RequireString("item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := lists.DeleteItem(ctx, itemID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult(map[string]any{"item": item, "removed": true})
		},
	)
}

// jsonResult wraps one payload as a structured tool result.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return result, nil
}

// toolResultFromError maps adapter errors into stable tool error prefixes.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError("canceled: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
