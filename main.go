package main

import (
	"os"

	"ncastro/comprobantes/cmd/classify"
	"ncastro/comprobantes/cmd/export"
	"ncastro/comprobantes/cmd/extract"
	"ncastro/comprobantes/cmd/initconfig"
	"ncastro/comprobantes/cmd/initdb"
	"ncastro/comprobantes/cmd/reconcile"
	"ncastro/comprobantes/cmd/root"
	"ncastro/comprobantes/cmd/serve"
)

func init() {
	root.Init()
	reconcile.Init()
	extract.Init()
	classify.Init()
	initconfig.Init()
	export.Init()

	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(classify.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(initdb.Cmd)
	root.Cmd.AddCommand(initconfig.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
