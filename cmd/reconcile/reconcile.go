// Package reconcile handles the bank statement reconciliation command
package reconcile

import (
	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/reconciler"
	"ncastro/comprobantes/internal/store"
)

var (
	excelPath  string
	reportPath string
)

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile stored receipts against a bank statement",
	Long: `Reconcile loads the bank statement spreadsheet, matches its movements
against the stored receipts, marks the matched receipts as reconciled and
writes a report with the matched and unmatched entries.`,
	Run: reconcileFunc,
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&excelPath, "excel", "e", "", "Bank statement .xlsx file (required)")
	Cmd.Flags().StringVarP(&reportPath, "output", "o", "", "Report file (default: timestamped reporte_conciliacion_*.xlsx)")
	_ = Cmd.MarkFlagRequired("excel")
}

func reconcileFunc(cmd *cobra.Command, args []string) {
	root.Log.Infof("Reconciling against bank statement: %s", excelPath)

	s, err := store.Open(root.Cfg.DB.Path)
	if err != nil {
		root.Log.Fatalf("Error opening database: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			root.Log.Warnf("Error closing database: %v", err)
		}
	}()

	outcome, err := reconciler.New(root.Cfg, s).Run(excelPath, reportPath)
	if err != nil {
		root.Log.Fatalf("Reconciliation failed: %v", err)
	}

	root.Log.Infof("Reconciliation completed: %d matched, %d only in bank, %d only in database",
		len(outcome.Matches), len(outcome.UnmatchedBank), len(outcome.UnmatchedReceipts))
}
