package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ManasDasri/PomStud/internal/ui"
	"github.com/ManasDasri/PomStud/internal/version"
)

var (
	flagServer string
	flagSTUN   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pomstud",
	Short: "Shared pomodoro rooms in your terminal",
	Long: `PomStud runs a pomodoro timer and task list that stay in sync with everyone
in the same room. Members connect through a signaling relay and, when
possible, directly to each other over WebRTC.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "relay websocket url (env: SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&flagSTUN, "stun", "", "STUN server for peer connections (env: STUN_SERVER)")

	rootCmd.AddCommand(joinCmd, statsCmd, versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
