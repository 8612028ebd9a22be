package cli

import (
	"context"
	"time"

	"github.com/ManasDasri/PomStud/internal/client"
	"github.com/ManasDasri/PomStud/internal/config"
	"github.com/ManasDasri/PomStud/internal/ui"
)

const connectTimeout = 10 * time.Second

// ConnectionContext bundles the relay connection of one command.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Client
}

// NewConnectionContext dials the relay and starts routing its messages. With
// signals false the negotiation events are discarded.
func NewConnectionContext(ctx context.Context, cfg *config.Client, signals bool) (*ConnectionContext, error) {
	sp := ui.NewConnectionSpinner("Connecting to " + cfg.ServerURL + "...")
	sp.Start()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c := client.New(cfg.ServerURL)
	if err := c.Connect(ctx); err != nil {
		sp.Error("Could not reach the relay")
		return nil, err
	}
	sp.Stop()

	h := client.NewHandler(c, signals)
	go h.Start()

	return &ConnectionContext{Client: c, Handler: h, Config: cfg}, nil
}

// Close ends the relay connection.
func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
