package main

import (
	"github.com/sockbridge/sockbridge/internal/app"
	"github.com/sockbridge/sockbridge/internal/cli"
)

func main() {
	cmd := app.Sockbridge()
	cmd.AddCommand(cli.Version())
	cmd.AddCommand(cli.DefaultConfigCommand())
	_ = cmd.Execute()
}
