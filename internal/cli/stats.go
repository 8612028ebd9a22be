package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManasDasri/PomStud/internal/client"
	"github.com/ManasDasri/PomStud/internal/config"
	"github.com/ManasDasri/PomStud/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live room and connection counts of the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadClient(config.ClientOptions{ServerURL: flagServer})
		if err != nil {
			return err
		}
		stats, err := fetchStats(cmd.Context(), cfg.StatsURL())
		if err != nil {
			return err
		}
		fmt.Println(ui.StatsView(stats))
		return nil
	},
}

func fetchStats(ctx context.Context, url string) (ui.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ui.Stats{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ui.Stats{}, client.WrapError("fetch stats", client.ErrConnection, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ui.Stats{}, client.WrapError("fetch stats", client.ErrServer, resp.Status)
	}

	var body struct {
		Rooms       int `json:"rooms"`
		Connections int `json:"connections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ui.Stats{}, client.WrapError("fetch stats", client.ErrServer, "invalid response")
	}
	return ui.Stats{Server: url, Rooms: body.Rooms, Connections: body.Connections}, nil
}
