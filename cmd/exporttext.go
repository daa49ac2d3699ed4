package cmd

import (
	"fmt"

	"github.com/foomo/contentexport/textexport"
	"github.com/spf13/cobra"
)

var textOutput string

var exportTextCmd = &cobra.Command{
	Use:   "export-text",
	Short: "Write all documents of a collection to one text file",
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
		collection, err := s.GetCollection(ctx, collectionName)
		if err != nil {
			return err
		}
		n, err := textexport.WriteFile(ctx, collection, collectionName, textOutput, a.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d documents written to %s\n", n, textOutput)
		return nil
	},
}

func init() {
	exportTextCmd.Flags().StringVarP(&textOutput, "output", "o", "shared.txt", "Text file to write")
	addStoreFlags(exportTextCmd)

	rootCmd.AddCommand(exportTextCmd)
}
