// Package mcp exposes the recall pipeline as MCP tools over stdio
package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Tool names
const (
	ToolSummarize = "chat_summarize"
	ToolAsk       = "chat_ask"
)

var errMissingConversation = errors.New("conversation_id is required")

// Server provides the recall MCP tools
type Server struct {
	server   *mcp.Server
	recaller Recaller
	log      zerolog.Logger
}

// NewServer creates a new MCP server backed by recaller
func NewServer(recaller Recaller, version string, log zerolog.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "chatrecall",
			Version: version,
		}, nil),
		recaller: recaller,
		log:      log,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSummarize,
		Description: "Summarize the most recent messages of an archived chat conversation.",
	}, s.handleSummarize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolAsk,
		Description: "Answer a question using the parts of an archived chat conversation that mention its keywords.",
	}, s.handleAsk)
}

// SummarizeInput is the input for the summarize tool
type SummarizeInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"The chat whose archive is summarized"`
	Count          int    `json:"count,omitempty" jsonschema:"Number of recent messages to summarize; omitted or 0 means 50 and negative values are rejected"`
}

// AskInput is the input for the ask tool
type AskInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"The chat whose archive is searched"`
	Question       string `json:"question" jsonschema:"The question to answer"`
}

// RecallOutput is the output of both tools
type RecallOutput struct {
	ConversationID string `json:"conversation_id"`
	Outcome        string `json:"outcome"`
	Reply          string `json:"reply"`
}

func (s *Server) handleSummarize(ctx context.Context, req *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, RecallOutput, error) {
	convID := strings.TrimSpace(input.ConversationID)
	if convID == "" {
		return nil, RecallOutput{}, errMissingConversation
	}

	res, err := s.recaller.Summarize(ctx, convID, input.Count)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", convID).Msg("summarize failed")
		return nil, RecallOutput{}, err
	}
	s.log.Info().Str("conversation_id", convID).Str("outcome", res.Outcome).Msg("summarize handled")
	return nil, RecallOutput{ConversationID: convID, Outcome: res.Outcome, Reply: res.Reply}, nil
}

func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, RecallOutput, error) {
	convID := strings.TrimSpace(input.ConversationID)
	if convID == "" {
		return nil, RecallOutput{}, errMissingConversation
	}

	res, err := s.recaller.Ask(ctx, convID, input.Question)
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", convID).Msg("ask failed")
		return nil, RecallOutput{}, err
	}
	s.log.Info().Str("conversation_id", convID).Str("outcome", res.Outcome).Msg("ask handled")
	return nil, RecallOutput{ConversationID: convID, Outcome: res.Outcome, Reply: res.Reply}, nil
}

// Run serves the tools over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
