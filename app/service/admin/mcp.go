package admin

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Service) newMCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		"supportbot",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(
		mcp.NewTool("list_conversations",
			mcp.WithDescription("List tracked chat conversations with their state"),
		),
		s.listConversationsTool,
	)

	srv.AddTool(
		mcp.NewTool("forget_conversation",
			mcp.WithDescription("Drop a tracked conversation and cancel its pending reply"),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Twitch user ID of the chatter"),
			),
		),
		s.forgetConversationTool,
	)

	srv.AddTool(
		mcp.NewTool("usage_status",
			mcp.WithDescription("Show how many replies a chatter received in the usage window"),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Twitch user ID of the chatter"),
			),
		),
		s.usageStatusTool,
	)

	return srv
}

func (s *Service) listConversationsTool(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.conversationViews())
}

func (s *Service) forgetConversationTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !s.conversationSvc.Store().Remove(userID) {
		return mcp.NewToolResultError("conversation not found"), nil
	}

	return mcp.NewToolResultText("ok"), nil
}

func (s *Service) usageStatusTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(s.usageView(userID))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(data)), nil
}
