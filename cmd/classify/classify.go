// Package classify handles the image quality classification command
package classify

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/classifier"
	"ncastro/comprobantes/internal/models"
)

var inputDir string

// Cmd represents the classify command
var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Sort receipt images by legibility",
	Long: `Classify grades every image in a directory with the local vision model
and moves it into an alta_calidad or baja_calidad subdirectory. Images the
model cannot grade stay where they are.`,
	Run: classifyFunc,
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&inputDir, "dir", "d", "", "Directory with receipt images (required)")
	_ = Cmd.MarkFlagRequired("dir")
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

func classifyFunc(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := classifier.New(root.Cfg)

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		root.Log.Fatalf("Error reading directory %s: %v", inputDir, err)
	}

	for _, quality := range []models.ImageQuality{models.QualityHigh, models.QualityLow} {
		if err := os.MkdirAll(filepath.Join(inputDir, string(quality)), 0o755); err != nil {
			root.Log.Fatalf("Error creating directory: %v", err)
		}
	}

	high, low, unknown := 0, 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(inputDir, entry.Name())
		quality, err := c.ClassifyFile(ctx, path)
		if err != nil {
			root.Log.Warnf("Classification failed for %s: %v", path, err)
			unknown++
			continue
		}

		switch quality {
		case models.QualityHigh:
			high++
		case models.QualityLow:
			low++
		default:
			unknown++
			continue
		}

		dest := filepath.Join(inputDir, string(quality), entry.Name())
		if err := os.Rename(path, dest); err != nil {
			root.Log.Warnf("Could not move %s: %v", path, err)
		}
	}

	root.Log.Infof("Classification completed: %d legible, %d illegible, %d unresolved",
		high, low, unknown)
}
