// Package extract handles the receipt extraction command
package extract

import (
	"context"

	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/extractor"
	"ncastro/comprobantes/internal/models"
	"ncastro/comprobantes/internal/store"
)

var inputDir string

// Cmd represents the extract command
var Cmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract receipts from a directory of images",
	Long: `Extract sends every image in a directory to the vision model, parses
the replies into structured receipts and stores them, skipping duplicates.`,
	Run: extractFunc,
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&inputDir, "dir", "d", "", "Directory with receipt images (required)")
	_ = Cmd.MarkFlagRequired("dir")
}

func extractFunc(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	e, err := extractor.New(ctx, root.Cfg)
	if err != nil {
		root.Log.Fatalf("Error creating extractor: %v", err)
	}
	defer func() {
		if err := e.Close(); err != nil {
			root.Log.Warnf("Error closing extractor: %v", err)
		}
	}()

	s, err := store.Open(root.Cfg.DB.Path)
	if err != nil {
		root.Log.Fatalf("Error opening database: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			root.Log.Warnf("Error closing database: %v", err)
		}
	}()

	results, err := e.ExtractDir(ctx, inputDir)
	if err != nil {
		root.Log.Fatalf("Error extracting directory: %v", err)
	}

	receipts := make([]*models.Receipt, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			root.Log.Warnf("Extraction failed for %s: %v", r.Path, r.Err)
			failed++
			continue
		}
		receipts = append(receipts, r.Receipt)
	}

	saved, skipped, err := s.SaveReceipts(receipts)
	if err != nil {
		root.Log.Fatalf("Error storing receipts: %v", err)
	}

	root.Log.Infof("Extraction completed: %d stored, %d duplicates, %d failed",
		saved, skipped, failed)
}
