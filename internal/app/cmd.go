package app

import (
	"github.com/sockbridge/sockbridge/internal/config"

	"github.com/spf13/cobra"
)

// Sockbridge builds the root command. Running it with no subcommand
// starts the server.
func Sockbridge() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "sockbridge",
		Short: "SockJS compatible session and transport server",
		Run: func(cmd *cobra.Command, args []string) {
			Run(cmd, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "config.json", "path to config file")
	config.DefineFlags(cmd)
	return cmd
}
