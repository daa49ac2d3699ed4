package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/store"
	"github.com/foomo/contentexport/wiki"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const Version = "0.1.0"

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
)

// DocumentIndex is the ingested collection the document tools read from.
type DocumentIndex interface {
	Query(ctx context.Context, text string, n int) ([]store.QueryResult, error)
	Get(ctx context.Context, opts store.GetOptions) (*store.GetResult, error)
}

// PageLister discovers the page hierarchy of the content service.
type PageLister interface {
	ListPages(ctx context.Context, spaceKey, parentPageID string) (*wiki.WalkResult, error)
}

type SearchDocumentsRequest struct {
	Query string `json:"query"` // Free text to search for
	Limit int    `json:"limit"` // Maximum number of hits
}

type SearchHit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
	Text     string            `json:"text"`
}

type SearchDocumentsResponse struct {
	Hits []SearchHit `json:"hits"`
}

type GetDocumentRequest struct {
	ID string `json:"id"` // The document id, e.g. file::shared/notes.txt
}

type GetDocumentResponse struct {
	Document *vo.Document `json:"document"`
}

type ListPagesRequest struct {
	SpaceKey     string `json:"spaceKey"`
	ParentPageID string `json:"parentPageId"`
}

type ListPagesResponse struct {
	Pages  []vo.PageRef `json:"pages"`
	Visits []vo.Visit   `json:"visits"`
}

// NewServer creates the MCP server. The document tools are only registered
// with an index, listPages only with a lister.
func NewServer(index DocumentIndex, pages PageLister) *server.MCPServer {
	s := server.NewMCPServer(
		"Content Export MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	if index != nil {
		searchTool := mcp.NewTool("searchDocuments",
			mcp.WithDescription("Search the ingested documents by semantic similarity"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Free text to search for"),
			),
			mcp.WithNumber("limit",
				mcp.Description(fmt.Sprintf("Maximum number of hits (default %d, max %d)", DefaultSearchLimit, MaxSearchLimit)),
			),
		)
		s.AddTool(searchTool, mcp.NewTypedToolHandler(searchDocumentsHandler(index)))

		getDocumentTool := mcp.NewTool("getDocument",
			mcp.WithDescription("Get an ingested document with its full text and metadata"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The document id as returned by searchDocuments"),
			),
		)
		s.AddTool(getDocumentTool, mcp.NewTypedToolHandler(getDocumentHandler(index)))
	}

	if pages != nil {
		listPagesTool := mcp.NewTool("listPages",
			mcp.WithDescription("List every page below a space or parent page of the wiki, depth first"),
			mcp.WithString("spaceKey",
				mcp.Description("Space key, defaults to the configured space"),
			),
			mcp.WithString("parentPageId",
				mcp.Description("Only list this page and its descendants"),
			),
		)
		s.AddTool(listPagesTool, mcp.NewTypedToolHandler(listPagesHandler(pages)))
	}

	return s
}

func searchDocumentsHandler(index DocumentIndex) func(ctx context.Context, request mcp.CallToolRequest, args SearchDocumentsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args SearchDocumentsRequest) (*mcp.CallToolResult, error) {
		if args.Query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := args.Limit
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		limit = min(limit, MaxSearchLimit)

		results, err := index.Query(ctx, args.Query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search documents: %v", err)), nil
		}
		response := SearchDocumentsResponse{Hits: make([]SearchHit, len(results))}
		for i, r := range results {
			response.Hits[i] = SearchHit{ID: r.ID, Score: r.Score, Metadata: r.Metadata, Text: r.Document}
		}
		return jsonResult(response)
	}
}

func getDocumentHandler(index DocumentIndex) func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetDocumentRequest) (*mcp.CallToolResult, error) {
		if args.ID == "" {
			return mcp.NewToolResultError("id is required"), nil
		}
		got, err := index.Get(ctx, store.GetOptions{IDs: []string{args.ID}})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get document: %v", err)), nil
		}
		if len(got.IDs) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("document %s not found", args.ID)), nil
		}
		meta := got.Metadatas[0]
		return jsonResult(GetDocumentResponse{Document: &vo.Document{
			ID:   got.IDs[0],
			Text: got.Documents[0],
			Metadata: vo.DocumentMetadata{
				SourceFile: meta["source_file"],
				FileType:   vo.FileType(meta["file_type"]),
			},
		}})
	}
}

func listPagesHandler(pages PageLister) func(ctx context.Context, request mcp.CallToolRequest, args ListPagesRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListPagesRequest) (*mcp.CallToolResult, error) {
		result, err := pages.ListPages(ctx, args.SpaceKey, args.ParentPageID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list pages: %v", err)), nil
		}
		return jsonResult(ListPagesResponse{Pages: result.Summary.Pages(), Visits: result.Visits})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
