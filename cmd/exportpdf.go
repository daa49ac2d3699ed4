package cmd

import (
	"github.com/foomo/contentexport/export"
	"github.com/foomo/contentexport/metrics"
	"github.com/foomo/contentexport/service"
	"github.com/foomo/contentexport/service/vo"
	"github.com/foomo/contentexport/wiki"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputDir       string
	parentPageID    string
	pollInterval    = export.DefaultPollInterval
	maxPollAttempts uint
	verifyPDF       bool
	metricsFile     string
)

var exportPDFCmd = &cobra.Command{
	Use:   "export-pdf",
	Short: "Export every page of a space or page tree as PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		cfg := a.cfg.Confluence
		if parentPageID != "" {
			cfg.ParentPageID = parentPageID
		}
		if err := cfg.Validate(); err != nil {
			a.logger.Error("invalid configuration", zap.Error(err))
			return err
		}

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

		if metricsFile == "" {
			metricsFile = a.cfg.MetricsFile
		}
		m := metrics.New()
		driver := export.NewDriver(client, export.Config{
			OutputDir:          outputDir,
			PollInterval:       pollInterval,
			MaxPollAttempts:    maxPollAttempts,
			VerifyPDF:          verifyPDF,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, a.logger, export.WithProgress(func(page vo.PageRef, job vo.ExportJob) {
			a.logger.Info("export progress",
				zap.String("title", page.Title),
				zap.Int("progress", job.Progress),
				zap.String("state", job.RawState),
			)
		}))

		svc := service.NewService(client, wiki.NewWalker(client, a.logger), driver, service.Settings{
			SpaceKey:     cfg.SpaceKey,
			ParentPageID: cfg.ParentPageID,
			OutputDir:    outputDir,
			LogFile:      a.cfg.LogFile,
		}, a.logger, service.WithOutput(cmd.OutOrStdout()), service.WithMetrics(m))

		_, runErr := svc.Run(cmd.Context())
		if err := m.WriteTextfile(metricsFile); err != nil {
			a.logger.Warn("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
		}
		return runErr
	},
}

func init() {
	exportPDFCmd.Flags().StringVarP(&outputDir, "output", "o", "confluence_exported_pdfs", "Directory the PDFs are written to")
	exportPDFCmd.Flags().StringVar(&parentPageID, "parent", "", "Only export this page and its descendants (overrides $CONFLUENCE_PARENT_PAGE_ID)")
	exportPDFCmd.Flags().DurationVar(&pollInterval, "poll-interval", export.DefaultPollInterval, "Wait between export progress checks")
	exportPDFCmd.Flags().UintVar(&maxPollAttempts, "max-attempts", export.DefaultMaxPollAttempts, "Progress checks before an export times out")
	exportPDFCmd.Flags().BoolVar(&verifyPDF, "verify-pdf", false, "Validate every downloaded file and discard broken PDFs")
	exportPDFCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run counters in Prometheus text format (default $CONTENTEXPORT_METRICS_FILE)")

	rootCmd.AddCommand(exportPDFCmd)
}
