// Package root contains the root command for the application
package root

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ncastro/comprobantes/internal/bankstatement"
	"ncastro/comprobantes/internal/classifier"
	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/export"
	"ncastro/comprobantes/internal/extractor"
	"ncastro/comprobantes/internal/matcher"
	"ncastro/comprobantes/internal/reconciler"
	"ncastro/comprobantes/internal/report"
	"ncastro/comprobantes/internal/server"
	"ncastro/comprobantes/internal/store"
)

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cfg is the loaded configuration, available after PersistentPreRun.
	Cfg *config.Config

	// ConfigPath is the --config flag value.
	ConfigPath string

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "comprobantes",
		Short: "A CLI tool to extract bank transfer receipts and reconcile them against bank statements.",
		Long: `comprobantes extracts structured data from Argentine bank transfer
receipt images, stores it in a local database and reconciles the stored
receipts against a bank statement spreadsheet.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to comprobantes!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()

			var err error
			Cfg, err = config.Load(ConfigPath)
			if err != nil {
				Log.Fatalf("Error loading configuration: %v", err)
			}
			Log = Cfg.ConfigureLogging()

			// Fan the configured logger out to every package.
			bankstatement.SetLogger(Log)
			matcher.SetLogger(Log)
			reconciler.SetLogger(Log)
			report.SetLogger(Log)
			store.SetLogger(Log)
			extractor.SetLogger(Log)
			classifier.SetLogger(Log)
			server.SetLogger(Log)
			export.SetLogger(Log)
		},
	}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Path to config.yaml (default: search standard locations)")
}
