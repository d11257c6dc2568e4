package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// QueryInput is the input schema for the query and suggest tools.
type QueryInput struct {
	Text   string         `json:"text" jsonschema:"the question, or the chat message to reply to"`
	Tenant string         `json:"tenant" jsonschema:"company id that scopes every lookup"`
	ChatID string         `json:"chat_id,omitempty" jsonschema:"conversation id whose recent messages are used as context"`
	Meta   map[string]any `json:"meta,omitempty" jsonschema:"request metadata such as author; shown to the model"`
}

// AnswerOutput is the output schema for the query and suggest tools.
type AnswerOutput struct {
	Answer    string `json:"answer,omitempty"`
	Answered  bool   `json:"answered"`
	State     string `json:"state"`
	Retrieved int    `json:"retrieved"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	ID      string         `json:"id" jsonschema:"document id, unique within the tenant; reusing it replaces the document"`
	Tenant  string         `json:"tenant" jsonschema:"company id that owns the document"`
	Content string         `json:"content" jsonschema:"text to store"`
	ChatID  string         `json:"chat_id,omitempty" jsonschema:"conversation the text belongs to"`
	Meta    map[string]any `json:"meta,omitempty" jsonschema:"metadata stored with every chunk, e.g. date and author"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DiffInput is the input schema for the summarize_diff tool.
type DiffInput struct {
	Diff string `json:"diff" jsonschema:"unified diff text, e.g. the output of git diff"`
}

// DiffOutput is the output schema for the summarize_diff tool.
type DiffOutput struct {
	Summary string `json:"summary"`
}

// registerTools registers a tool for every configured port.
func (s *Server) registerTools() {
	s.addTool(&mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the tenant's stored chats and documents",
	}, s.handleQuery)
	s.addTool(&mcp.Tool{
		Name:        "suggest",
		Description: "Suggest a reply to a chat message; returns no answer unless it is confident and relevant",
	}, s.handleSuggest)

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Store a text document or chat message for later questions",
		}, s.handleIngest)
		s.tools = append(s.tools, "ingest")
	}
	if s.ports.Diff != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "summarize_diff",
			Description: "Summarise a unified diff file by file",
		}, s.handleDiff)
		s.tools = append(s.tools, "summarize_diff")
	}
}

func (s *Server) addTool(
	tool *mcp.Tool,
	handler mcp.ToolHandlerFor[QueryInput, AnswerOutput],
) {
	mcp.AddTool(s.server, tool, handler)
	s.tools = append(s.tools, tool.Name)
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.ports.Query.Query(ctx, input.query())
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	return nil, newAnswerOutput(answer), nil
}

func (s *Server) handleSuggest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.ports.Query.Suggest(ctx, input.query())
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	return nil, newAnswerOutput(answer), nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	doc := domain.Document{
		ID:       input.ID,
		Tenant:   input.Tenant,
		ChatID:   input.ChatID,
		Content:  input.Content,
		Metadata: input.Meta,
	}
	if err := s.ports.Ingestion.Ingest(ctx, doc); err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingest %s: %w", input.ID, err)
	}
	return nil, IngestOutput{ID: input.ID, Status: "ok"}, nil
}

func (s *Server) handleDiff(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DiffInput,
) (*mcp.CallToolResult, DiffOutput, error) {
	summary, err := s.ports.Diff.Summarize(ctx, input.Diff)
	if err != nil {
		return nil, DiffOutput{}, err
	}
	return nil, DiffOutput{Summary: summary}, nil
}

func (in QueryInput) query() domain.Query {
	return domain.Query{
		Text:     in.Text,
		Tenant:   in.Tenant,
		ChatID:   in.ChatID,
		Metadata: in.Meta,
	}
}

func newAnswerOutput(answer *domain.Answer) AnswerOutput {
	out := AnswerOutput{
		Answered:  answer.Answered(),
		State:     string(answer.State),
		Retrieved: answer.Retrieved,
	}
	if out.Answered {
		out.Answer = answer.Text
	}
	return out
}
