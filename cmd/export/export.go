// Package export handles the CSV export command
package export

import (
	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/export"
	"ncastro/comprobantes/internal/store"
)

var outputPath string

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored receipts to CSV",
	Run:   exportFunc,
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "comprobantes.csv", "Destination CSV file")
}

func exportFunc(cmd *cobra.Command, args []string) {
	s, err := store.Open(root.Cfg.DB.Path)
	if err != nil {
		root.Log.Fatalf("Error opening database: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			root.Log.Warnf("Error closing database: %v", err)
		}
	}()

	receipts, err := s.ListReceipts()
	if err != nil {
		root.Log.Fatalf("Error listing receipts: %v", err)
	}
	if err := export.WriteReceipts(receipts, outputPath); err != nil {
		root.Log.Fatalf("Error exporting receipts: %v", err)
	}

	root.Log.Infof("Exported %d receipts to %s", len(receipts), outputPath)
}
