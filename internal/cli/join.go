package cli

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManasDasri/PomStud/internal/config"
	"github.com/ManasDasri/PomStud/internal/peer"
	"github.com/ManasDasri/PomStud/internal/room"
	"github.com/ManasDasri/PomStud/internal/ui"
	"github.com/ManasDasri/PomStud/internal/version"
)

var (
	flagRoom   string
	flagName   string
	flagFocus  int
	flagBreak  int
	flagNoPeer bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a study room",
	Long: `Join a shared pomodoro room. Without a room name a new one is generated;
share it so others can join.

Examples:
  pomstud join
  pomstud join quiet-library-teapot --name Sam
  pomstud join exam-prep --focus 50 --break 10 --no-peer`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := flagRoom
		if len(args) == 1 {
			roomID = args[0]
		}
		return joinRoom(cmd.Context(), strings.TrimSpace(roomID), strings.TrimSpace(flagName))
	},
}

func init() {
	joinCmd.Flags().StringVarP(&flagRoom, "room", "r", "", "room to join (default: a generated name)")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "display name (default: your login name)")
	joinCmd.Flags().IntVar(&flagFocus, "focus", 0, "focus minutes (env: FOCUS_MINUTES)")
	joinCmd.Flags().IntVar(&flagBreak, "break", 0, "break minutes (env: BREAK_MINUTES)")
	joinCmd.Flags().BoolVar(&flagNoPeer, "no-peer", false, "do not open direct peer connections")
}

func joinRoom(ctx context.Context, roomID, name string) error {
	cfg, err := config.LoadClient(config.ClientOptions{
		ServerURL:    flagServer,
		STUNServer:   flagSTUN,
		FocusMinutes: flagFocus,
		BreakMinutes: flagBreak,
	})
	if err != nil {
		return err
	}

	if roomID == "" {
		roomID = room.GenerateName()
	}
	if name == "" {
		name = defaultName()
	}

	conn, err := NewConnectionContext(ctx, cfg, !flagNoPeer)
	if err != nil {
		return err
	}
	defer conn.Close()

	ui.PrintInfof("Joining room %s as %s", ui.BoldStyle.Render(roomID), name)
	if err := conn.Client.JoinRoom(roomID, name); err != nil {
		return err
	}

	session := ui.SessionConfig{
		RoomID:    roomID,
		Name:      name,
		Focus:     cfg.FocusDuration,
		Break:     cfg.BreakDuration,
		Publisher: conn.Client,
		Handler:   conn.Handler,
	}

	if !flagNoPeer {
		mesh := peer.New(conn.Client, peer.Config{
			ICEServers: cfg.GetSTUNServers(),
			Name:       name,
			Version:    version.Version,
		})
		defer mesh.Close()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go mesh.Run(ctx, conn.Handler)

		session.Mesh = mesh
	}

	if err := ui.RunSession(session); err != nil {
		return err
	}
	fmt.Printf("Left room %s. Nice work!\n", roomID)
	return nil
}

func defaultName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "student"
}
