package cmd

import (
	"github.com/foomo/contentexport/embed"
	"github.com/foomo/contentexport/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	storeDir       string
	collectionName string
)

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&storeDir, "db", defaultStoreDir, "Directory of the document store")
	cmd.Flags().StringVar(&collectionName, "collection", defaultCollection, "Collection name")
}

func openStore(a *app, opts ...store.Option) (*store.Store, error) {
	opts = append([]store.Option{store.WithLogger(a.logger)}, opts...)
	s, err := store.Open(storeDir, opts...)
	if err != nil {
		a.logger.Error("failed to open store", zap.String("dir", storeDir), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func newEmbedder(a *app) embed.Embedder {
	return embed.New(embed.Config{
		Endpoint: a.cfg.Embedding.Endpoint,
		Model:    a.cfg.Embedding.Model,
	}, a.logger)
}
