package cli

import (
	"fmt"
	"runtime"

	"github.com/sockbridge/sockbridge/internal/build"

	"github.com/spf13/cobra"
)

// Version returns the command printing the server version together
// with the Go runtime it was built with.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sockbridge v%s (Go version: %s)\n", build.Version, runtime.Version())
		},
	}
}
