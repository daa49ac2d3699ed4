package cmd

import (
	"errors"
	"net/http"

	"github.com/foomo/contentexport/mcp"
	"github.com/foomo/contentexport/service"
	"github.com/foomo/contentexport/wiki"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	httpAddr    string
	mcpEndpoint string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document store and the page tree as MCP tools",
	Long: `Serve runs an MCP server with the searchDocuments and getDocument tools on the
ingested collection. When the Confluence settings are complete it also offers
listPages. Without --http the server speaks over stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		s, err := openStore(a)
		if err != nil {
			return err
		}
		defer s.Close()

		collection, err := s.GetOrCreateCollection(cmd.Context(), collectionName, newEmbedder(a))
		if err != nil {
			return err
		}

		var lister mcp.PageLister
		if cfg := a.cfg.Confluence; cfg.Validate() == nil {
			client, err := wiki.NewClient(wiki.Config{
				BaseURL:            cfg.BaseURL,
				Username:           cfg.User,
				Password:           cfg.TokenOrPass,
				InsecureSkipVerify: cfg.InsecureSkipVerify,
				RootPagesOnly:      cfg.RootPagesOnly,
			}, a.logger)
			if err != nil {
				return err
			}
			lister = service.NewLister(client, wiki.NewWalker(client, a.logger), cfg.SpaceKey, a.logger)
		} else {
			a.logger.Info("confluence not configured, listPages disabled")
		}

		mcpServer := mcp.NewServer(collection, lister)
		if httpAddr == "" {
			a.logger.Info("starting MCP server in stdio mode")
			return server.ServeStdio(mcpServer)
		}

		a.logger.Info("starting MCP server", zap.String("addr", httpAddr), zap.String("endpoint", mcpEndpoint))
		srv := &http.Server{Addr: httpAddr, Handler: mcp.NewHTTPHandler(a.logger, mcpServer, mcpEndpoint)}
		go func() {
			<-cmd.Context().Done()
			_ = srv.Close()
		}()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http", "", "HTTP address to listen on, e.g. :8080 (default stdio)")
	serveCmd.Flags().StringVar(&mcpEndpoint, "endpoint", mcp.DefaultEndpoint, "MCP endpoint path")
	addStoreFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}
