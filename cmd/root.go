package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/foomo/contentexport/config"
	"github.com/foomo/contentexport/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const (
	defaultStoreDir   = "./my_chroma_db"
	defaultCollection = "shared"
)

var (
	envFile string
	logFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "contentexport",
	Short: "Export Confluence pages as PDF and manage a local document store",
	Long: `contentexport walks a Confluence space or page tree and downloads every page
through the asynchronous PDF export. It also ingests local documents into an
embedded vector store, exports them to text, serves them over MCP and resets
the store.

Connection settings are read from the environment or a .env file:
CONFLUENCE_URL, CONFLUENCE_USER, CONFLUENCE_TOKEN_OR_PASS, CONFLUENCE_SPACE_KEY
and the optional CONFLUENCE_PARENT_PAGE_ID.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("contentexport %s (commit: %s, built: %s)\n", Version, Commit, BuildDate))

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File to load environment variables from")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Debug log file (default $"+config.EnvLogFile+" or "+config.DefaultLogFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every command needs after startup.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	close  func() error
}

func setup() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	logger, closeFn, err := logging.New(logging.Config{File: cfg.LogFile, ConsoleLevel: level})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("url", cfg.Confluence.BaseURL),
		zap.String("space", cfg.Confluence.SpaceKey),
		zap.String("logFile", cfg.LogFile),
	)
	return &app{cfg: cfg, logger: logger, close: closeFn}, nil
}
