package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/foomo/contentexport/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	assumeYes bool
	purge     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every collection and document of the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		r := resetter{
			dir:    storeDir,
			yes:    assumeYes,
			purge:  purge,
			in:     bufio.NewReader(cmd.InOrStdin()),
			out:    cmd.OutOrStdout(),
			logger: a.logger,
		}
		return r.run(cmd.Context())
	},
}

func init() {
	resetCmd.Flags().StringVar(&storeDir, "db", defaultStoreDir, "Directory of the document store")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	resetCmd.Flags().BoolVar(&purge, "purge", false, "Also remove the store directory")

	rootCmd.AddCommand(resetCmd)
}

type resetter struct {
	dir    string
	yes    bool
	purge  bool
	in     *bufio.Reader
	out    io.Writer
	logger *zap.Logger
}

func (r resetter) run(ctx context.Context) error {
	fmt.Fprintln(r.out, "WARNING: this deletes ALL collections and documents of the store in", r.dir)
	fmt.Fprintln(r.out, "This cannot be undone.")
	if !r.confirm("Continue?") {
		fmt.Fprintln(r.out, "Reset cancelled.")
		return nil
	}
	if _, err := os.Stat(r.dir); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(r.out, "Store directory %s does not exist, nothing to delete.\n", r.dir)
		return nil
	}

	s, err := store.Open(r.dir, store.WithAllowReset(), store.WithLogger(r.logger))
	if err != nil {
		return err
	}
	err = s.Reset(ctx)
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Store reset, all collections were deleted.")

	if r.purge || (!r.yes && r.confirm(fmt.Sprintf("Also remove the directory %s?", r.dir))) {
		if err := os.RemoveAll(r.dir); err != nil {
			r.logger.Error("failed to remove store directory", zap.String("dir", r.dir), zap.Error(err))
			return fmt.Errorf("remove %s: %w", r.dir, err)
		}
		fmt.Fprintf(r.out, "Directory %s removed.\n", r.dir)
		return nil
	}
	fmt.Fprintf(r.out, "Directory %s kept, it holds an empty store.\n", r.dir)
	return nil
}

// confirm asks a y/N question, anything but y or yes is a no.
func (r resetter) confirm(question string) bool {
	if r.yes {
		return true
	}
	fmt.Fprintf(r.out, "%s (y/N): ", question)
	answer, err := r.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
