// Package serve handles the intake server command
package serve

import (
	"context"

	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/extractor"
	"ncastro/comprobantes/internal/server"
	"ncastro/comprobantes/internal/store"
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP intake server for messaging-bot forwarded receipts",
	Run:   serveFunc,
}

func serveFunc(cmd *cobra.Command, args []string) {
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

	if err := server.New(e, s).Run(root.Cfg.Server.Addr); err != nil {
		root.Log.Fatalf("Server error: %v", err)
	}
}
