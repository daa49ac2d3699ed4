package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const DefaultEndpoint = "/mcp"

// NewHTTPHandler serves the MCP streamable HTTP transport on endpoint and a
// health check next to it.
func NewHTTPHandler(logger *zap.Logger, s *server.MCPServer, endpoint string) http.Handler {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mcpHandler := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			logger.Debug("mcp request", zap.String("remote", r.RemoteAddr), zap.String("method", r.Method))
			return ctx
		}),
	)

	mux := http.NewServeMux()
	mux.Handle(endpoint, mcpHandler)
	mux.HandleFunc(endpoint+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + Version + `"}`))
	})
	return mux
}
