// Package initconfig handles the configuration scaffolding command
package initconfig

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/config"
)

var outputPath string

// Cmd represents the init-config command
var Cmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a config.yaml with the default settings",
	Run:   initconfigFunc,
}

// Init registers the command flags.
func Init() {
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "config.yaml", "Destination file")
}

func initconfigFunc(cmd *cobra.Command, args []string) {
	if _, err := os.Stat(outputPath); err == nil {
		root.Log.Fatalf("Refusing to overwrite existing %s", outputPath)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		root.Log.Fatalf("Error serializing default configuration: %v", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		root.Log.Fatalf("Error writing %s: %v", outputPath, err)
	}

	root.Log.Infof("Default configuration written to %s", outputPath)
}
