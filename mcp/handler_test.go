package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/contentexport/embed"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/store"
	"github.com/foomo/contentexport/wiki"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *store.Collection {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c, err := s.GetOrCreateCollection(ctx, "shared", embed.NewHashing(128))
	require.NoError(t, err)
	_, err = c.Add(ctx,
		[]string{"file::shared/notes.txt", "file::shared/menu.txt"},
		[]string{"release notes for the quarterly release", "canteen lunch menu"},
		[]map[string]string{
			{"source_file": "notes.txt", "file_type": "txt"},
			{"source_file": "menu.txt", "file_type": "txt"},
		},
	)
	require.NoError(t, err)
	return c
}

func callRequest(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params:  mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

type fakeLister struct {
	result *wiki.WalkResult
	err    error
	args   []string
}

func (f *fakeLister) ListPages(_ context.Context, spaceKey, parentPageID string) (*wiki.WalkResult, error) {
	f.args = []string{spaceKey, parentPageID}
	return f.result, f.err
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(nil, nil))
	assert.NotNil(t, NewServer(newIndex(t), &fakeLister{}))
}

func TestSearchDocumentsHandler(t *testing.T) {
	args := SearchDocumentsRequest{Query: "quarterly release notes", Limit: 1}
	result, err := searchDocumentsHandler(newIndex(t))(context.Background(), callRequest("searchDocuments", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var response SearchDocumentsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	require.Len(t, response.Hits, 1)
	assert.Equal(t, "file::shared/notes.txt", response.Hits[0].ID)
	assert.Equal(t, "notes.txt", response.Hits[0].Metadata["source_file"])
}

func TestSearchDocumentsHandlerValidation(t *testing.T) {
	args := SearchDocumentsRequest{}
	result, err := searchDocumentsHandler(newIndex(t))(context.Background(), callRequest("searchDocuments", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetDocumentHandler(t *testing.T) {
	handler := getDocumentHandler(newIndex(t))

	args := GetDocumentRequest{ID: "file::shared/menu.txt"}
	result, err := handler(context.Background(), callRequest("getDocument", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError)
	var response GetDocumentResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, "canteen lunch menu", response.Document.Text)
	assert.Equal(t, vo.FileTypeTXT, response.Document.Metadata.FileType)

	args = GetDocumentRequest{ID: "file::shared/missing.txt"}
	result, err = handler(context.Background(), callRequest("getDocument", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestListPagesHandler(t *testing.T) {
	summary := vo.NewPageSummary()
	summary.Add(vo.PageRef{ID: "1", Title: "Home"})
	summary.Add(vo.PageRef{ID: "2", Title: "Team"})
	lister := &fakeLister{result: &wiki.WalkResult{
		Visits: []vo.Visit{
			{Page: vo.PageRef{ID: "1", Title: "Home"}},
			{Page: vo.PageRef{ID: "2", Title: "Team"}, Depth: 1},
		},
		Summary: summary,
	}}

	args := ListPagesRequest{SpaceKey: "DOCS"}
	result, err := listPagesHandler(lister)(context.Background(), callRequest("listPages", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, []string{"DOCS", ""}, lister.args)

	var response ListPagesResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Len(t, response.Pages, 2)
	assert.Equal(t, 1, response.Visits[1].Depth)

	lister.err = errors.New("no pages found")
	result, err = listPagesHandler(lister)(context.Background(), callRequest("listPages", args), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHTTPHandlerHealth(t *testing.T) {
	srv := httptest.NewServer(NewHTTPHandler(nil, NewServer(nil, nil), ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + DefaultEndpoint + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"`+Version+`"}`, string(body))
}
