package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/stratuslab/pdisk-portal/internal/version"
)

var rootCmd = &cobra.Command{
	Version: version.Version,
	Use:     "pdisk-portal",
	Short:   "Runs the Stratuslab persistent disk storage portal",
	Long: `pdisk-portal serves the persistent disk storage portal behind HTTP Basic authentication.

Besides the server itself, it manages portal users and can trigger a logout from the command
line the same way the browser client does.
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(logoutCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
