package cmd

import (
	"fmt"

	"github.com/foomo/contentexport/ingest"
	"github.com/foomo/contentexport/metrics"
	"github.com/spf13/cobra"
)

var documentsFolder string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add the .txt, .pdf, .md and .html files of a folder to the document store",
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

		ctx := cmd.Context()
		collection, err := s.GetOrCreateCollection(ctx, collectionName, newEmbedder(a))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		m := metrics.New()
		fmt.Fprintf(out, "Scanning %q for documents...\n", documentsFolder)
		report, err := ingest.New(collection, a.logger, ingest.WithOutput(out), ingest.WithMetrics(m)).Run(ctx, documentsFolder)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Documents in collection %q: %d\n", collectionName, report.Total)

		infos, err := s.ListCollections(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nCollections in the store:")
		for _, info := range infos {
			fmt.Fprintf(out, "  - Name: %s, ID: %s, Documents: %d\n", info.Name, info.ID, info.Count)
		}
		return m.WriteTextfile(a.cfg.MetricsFile)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&documentsFolder, "folder", "shared", "Folder to read documents from")
	addStoreFlags(ingestCmd)

	rootCmd.AddCommand(ingestCmd)
}
