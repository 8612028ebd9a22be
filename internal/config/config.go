package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultAddr           = ":8080"
	DefaultCORSAllow      = "*"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultQueueSize      = 256
	DefaultMaxMessageSize = 64 * 1024
	DefaultMessageRate    = 50
	DefaultMessageBurst   = 100

	DefaultServerURL    = "ws://localhost:8080/ws"
	DefaultSTUN         = "stun:stun.l.google.com:19302"
	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5
)

// Server holds relay configuration
type Server struct {
	Addr           string
	CORSAllow      []string
	LogLevel       string
	LogFormat      string
	QueueSize      int
	MaxMessageSize int64
	MessageRate    float64
	MessageBurst   int
}

// ServerOptions carries CLI flag overrides. Zero values mean "not set".
type ServerOptions struct {
	Addr           string
	CORSAllow      string
	LogLevel       string
	LogFormat      string
	QueueSize      int
	MaxMessageSize int64
	MessageRate    float64
	MessageBurst   int
}

// LoadServer reads relay configuration with the following priority:
// 1. CLI flags (passed via ServerOptions) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadServer(opts ServerOptions) (*Server, error) {
	queueSize, err := intValue(opts.QueueSize, "QUEUE_SIZE", DefaultQueueSize)
	if err != nil {
		return nil, err
	}
	maxSize, err := intValue(int(opts.MaxMessageSize), "MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	burst, err := intValue(opts.MessageBurst, "MESSAGE_BURST", DefaultMessageBurst)
	if err != nil {
		return nil, err
	}

	msgRate := opts.MessageRate
	if msgRate <= 0 {
		if v := os.Getenv("MESSAGE_RATE"); v != "" {
			msgRate, err = strconv.ParseFloat(v, 64)
			if err != nil || msgRate <= 0 {
				return nil, fmt.Errorf("MESSAGE_RATE: invalid value %q", v)
			}
		}
	}
	if msgRate <= 0 {
		msgRate = DefaultMessageRate
	}

	format := strings.ToLower(stringValue(opts.LogFormat, "LOG_FORMAT", DefaultLogFormat))
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("LOG_FORMAT: want text or json, got %q", format)
	}

	return &Server{
		Addr:           stringValue(opts.Addr, "ADDR", portAddr()),
		CORSAllow:      splitList(stringValue(opts.CORSAllow, "CORS_ALLOW", DefaultCORSAllow)),
		LogLevel:       stringValue(opts.LogLevel, "LOG_LEVEL", DefaultLogLevel),
		LogFormat:      format,
		QueueSize:      queueSize,
		MaxMessageSize: int64(maxSize),
		MessageRate:    msgRate,
		MessageBurst:   burst,
	}, nil
}

// Client holds configuration for the terminal client
type Client struct {
	// ServerURL is the websocket endpoint of the relay
	ServerURL string

	// STUNServer is used for the peer mesh
	STUNServer string

	FocusDuration time.Duration
	BreakDuration time.Duration
}

// ClientOptions carries CLI flag overrides
type ClientOptions struct {
	ServerURL    string
	STUNServer   string
	FocusMinutes int
	BreakMinutes int
}

// LoadClient reads client configuration: CLI flag > env > default.
func LoadClient(opts ClientOptions) (*Client, error) {
	focus, err := intValue(opts.FocusMinutes, "FOCUS_MINUTES", DefaultFocusMinutes)
	if err != nil {
		return nil, err
	}
	brk, err := intValue(opts.BreakMinutes, "BREAK_MINUTES", DefaultBreakMinutes)
	if err != nil {
		return nil, err
	}

	serverURL := stringValue(opts.ServerURL, "SERVER_URL", DefaultServerURL)
	if !strings.HasPrefix(serverURL, "ws://") && !strings.HasPrefix(serverURL, "wss://") {
		return nil, fmt.Errorf("SERVER_URL: want a ws:// or wss:// url, got %q", serverURL)
	}

	return &Client{
		ServerURL:     serverURL,
		STUNServer:    stringValue(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		FocusDuration: time.Duration(focus) * time.Minute,
		BreakDuration: time.Duration(brk) * time.Minute,
	}, nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Client) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// StatsURL derives the HTTP stats endpoint from the websocket url.
func (c *Client) StatsURL() string {
	u := c.ServerURL
	switch {
	case strings.HasPrefix(u, "wss://"):
		u = "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		u = "http://" + strings.TrimPrefix(u, "ws://")
	}
	return strings.TrimSuffix(strings.TrimSuffix(u, "/"), "/ws") + "/stats"
}

// portAddr maps the PORT variable used by hosting platforms to a listen
// address. ADDR takes precedence.
func portAddr() string {
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return DefaultAddr
}

func stringValue(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func intValue(flag int, env string, def int) (int, error) {
	if flag > 0 {
		return flag, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s: invalid value %q", env, v)
		}
		return n, nil
	}
	return def, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
