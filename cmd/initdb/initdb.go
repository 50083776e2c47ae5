// Package initdb handles the database initialization command
package initdb

import (
	"github.com/spf13/cobra"

	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/internal/store"
)

// Cmd represents the init-db command
var Cmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the receipts database and its schema",
	Run:   initdbFunc,
}

func initdbFunc(cmd *cobra.Command, args []string) {
	s, err := store.Open(root.Cfg.DB.Path)
	if err != nil {
		root.Log.Fatalf("Error initializing database: %v", err)
	}
	if err := s.Close(); err != nil {
		root.Log.Warnf("Error closing database: %v", err)
	}
	root.Log.Infof("Database ready at %s", root.Cfg.DB.Path)
}
