package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ManasDasri/PomStud/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pomstud %s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH)
	},
}
