// Package mcpadapter exposes contract search, question answering and deadline tracking as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

// Services are the inbound ports the tools call.
type Services struct {
	Searcher ports.ContractSearcher
	Answerer ports.QuestionAnswerer
	Lister   ports.ContractLister
	Alerts   ports.AlertReader
	History  ports.HistoryService
}

type Server struct {
	mcp      *server.MCPServer
	services Services
}

func NewServer(name, version string, services Services) (*Server, error) {
	if services.Searcher == nil || services.Answerer == nil || services.Lister == nil || services.Alerts == nil {
		return nil, errors.New("mcp server: searcher, answerer, lister and alerts are required")
	}
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		services: services,
	}
	s.registerTools()
	return s, nil
}

// ServeStdio serves newline-delimited JSON-RPC over in/out until ctx ends or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	categories := make([]string, 0, 3)
	for _, c := range domain.AllCategories() {
		categories = append(categories, string(c))
	}

	s.mcp.AddTool(mcp.NewTool("search_contracts",
		mcp.WithDescription("Search stored contracts with a natural-language query. Returns ranked hits with their extracted fields."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query.")),
		mcp.WithString("category", mcp.Description("Restrict the search to one contract category."), mcp.Enum(categories...)),
		mcp.WithNumber("limit", mcp.Description("Maximum hits per collection (default 100).")),
	), s.searchContracts)

	s.mcp.AddTool(mcp.NewTool("ask_contracts",
		mcp.WithDescription("Answer a question from the most relevant contracts, or from the given documents when s3_urls is set."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question to answer.")),
		mcp.WithString("category", mcp.Description("Restrict retrieval to one contract category."), mcp.Enum(categories...)),
		mcp.WithArray("s3_urls", mcp.Description("Answer only from these stored documents."), mcp.Items(map[string]any{"type": "string"})),
	), s.askContracts)

	s.mcp.AddTool(mcp.NewTool("chat_with_document",
		mcp.WithDescription("Ask a follow-up question about one stored document."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question about the document.")),
		mcp.WithString("document_url", mcp.Required(), mcp.Description("Storage or viewable URL of the document.")),
	), s.chatWithDocument)

	s.mcp.AddTool(mcp.NewTool("summarize_documents",
		mcp.WithDescription("Summarize several stored documents together."),
		mcp.WithArray("s3_urls", mcp.Required(), mcp.Description("Documents to summarize."), mcp.Items(map[string]any{"type": "string"})),
	), s.summarizeDocuments)

	s.mcp.AddTool(mcp.NewTool("list_contracts",
		mcp.WithDescription("List stored contracts with their display name, date and a temporary viewable URL."),
		mcp.WithString("category", mcp.Description("Only list this category."), mcp.Enum(categories...)),
	), s.listContracts)

	s.mcp.AddTool(mcp.NewTool("contract_alerts",
		mcp.WithDescription("List upcoming contract deadlines split into urgent alerts and later reminders."),
	), s.contractAlerts)

	if s.services.History != nil {
		s.mcp.AddTool(mcp.NewTool("recall_history",
			mcp.WithDescription("Find past questions and answers similar to a query."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Text to match against past interactions.")),
			mcp.WithNumber("top_k", mcp.Description("Number of interactions to return (default 5).")),
		), s.recallHistory)
	}
}

func (s *Server) searchContracts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.services.Searcher.Search(ctx, ports.SearchRequest{
		Query:    query,
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", 0),
	})
	if err != nil {
		return toolError("search_contracts", err), nil
	}
	return jsonResult(result)
}

func (s *Server) askContracts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	urls := req.GetStringSlice("s3_urls", nil)
	result, err := s.services.Answerer.Answer(ctx, ports.AnswerRequest{
		Query:        query,
		Category:     req.GetString("category", ""),
		ScopedSearch: len(urls) > 0,
		S3URLs:       urls,
	})
	if err != nil {
		return toolError("ask_contracts", err), nil
	}
	return jsonResult(result)
}

func (s *Server) chatWithDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docURL, err := req.RequireString("document_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.services.Answerer.ChatWithDocument(ctx, query, docURL)
	if err != nil {
		return toolError("chat_with_document", err), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (s *Server) summarizeDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urls := req.GetStringSlice("s3_urls", nil)
	if len(urls) == 0 {
		return mcp.NewToolResultError("s3_urls must name at least one document"), nil
	}
	result, err := s.services.Answerer.Summarize(ctx, urls)
	if err != nil {
		return toolError("summarize_documents", err), nil
	}
	return jsonResult(result)
}

func (s *Server) listContracts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		items []domain.ContractSummary
		err   error
	)
	if category := req.GetString("category", ""); category != "" {
		items, err = s.services.Lister.ListByCategory(ctx, category)
	} else {
		items, err = s.services.Lister.ListAll(ctx)
	}
	if err != nil {
		return toolError("list_contracts", err), nil
	}
	if items == nil {
		items = []domain.ContractSummary{}
	}
	return jsonResult(map[string]any{"results": items})
}

func (s *Server) contractAlerts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.services.Alerts.AlertsAndReminders(ctx)
	if err != nil {
		return toolError("contract_alerts", err), nil
	}
	return jsonResult(report)
}

func (s *Server) recallHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := req.GetInt("top_k", 5)
	if topK <= 0 {
		topK = 5
	}
	recalled, err := s.services.History.Recall(ctx, query, topK)
	if err != nil {
		return toolError("recall_history", err), nil
	}
	return jsonResult(map[string]any{"results": recalled})
}

// toolError reports a failed call to the client. Only unexpected faults are logged.
func toolError(tool string, err error) *mcp.CallToolResult {
	if !domain.IsKind(err, domain.ErrInvalidInput) && !domain.IsKind(err, domain.ErrNotFound) {
		slog.Error("mcp_tool_failed", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
