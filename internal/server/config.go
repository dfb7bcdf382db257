// Package server provides the environment-driven configuration for the
// SpaceHub service, including transport limits, hub timing windows, and the
// optional world geometry.
package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/covelab/spacehub/internal/hub"
)

// Config holds every runtime setting. Values come from the environment with
// the defaults below; out-of-range values are reset rather than rejected.
type Config struct {
	Port           string   `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`

	// MaxMessageSize caps the size of a single inbound WebSocket frame.
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`

	// RateLimitBurst and RateLimitRefillInterval throttle the raw inbound
	// event stream per connection, independent of the movement gate.
	RateLimitBurst          int           `env:"RATE_LIMIT_BURST" envDefault:"64"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`

	MoveMinInterval      time.Duration `env:"MOVE_MIN_INTERVAL" envDefault:"50ms"`
	InactivityThreshold  time.Duration `env:"INACTIVITY_THRESHOLD" envDefault:"2m"`
	ReaperInterval       time.Duration `env:"REAPER_INTERVAL" envDefault:"30s"`
	ReconnectGrace       time.Duration `env:"RECONNECT_GRACE" envDefault:"10s"`
	ReconnectMinInterval time.Duration `env:"RECONNECT_MIN_INTERVAL" envDefault:"1s"`
	MaxChatMessageLength int           `env:"MAX_CHAT_MESSAGE_LENGTH" envDefault:"512"`

	// ProximityThreshold pairs nearby participants into a chat session when
	// positive; zero disables proximity pairing.
	ProximityThreshold float64 `env:"PROXIMITY_THRESHOLD" envDefault:"0"`

	// WorldBounds is "width,height". Empty means an unbounded world.
	WorldBounds string `env:"WORLD_BOUNDS"`

	// Zones is "name:x,y,width,height" entries separated by semicolons.
	Zones string `env:"ZONES"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads the configuration from the environment and applies the
// sanity floors.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 64
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = time.Second
	}
	if c.MaxChatMessageLength <= 0 {
		c.MaxChatMessageLength = 512
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MoveMinInterval < 0 {
		c.MoveMinInterval = 0
	}
	if c.ProximityThreshold < 0 {
		c.ProximityThreshold = 0
	}
}

// HubOptions translates the flat configuration into hub options, parsing the
// structured world geometry values.
func (c *Config) HubOptions() (hub.Options, error) {
	opts := hub.Options{
		ReconnectGrace:       c.ReconnectGrace,
		ReconnectMinInterval: c.ReconnectMinInterval,
		MoveMinInterval:      c.MoveMinInterval,
		InactivityThreshold:  c.InactivityThreshold,
		ReaperInterval:       c.ReaperInterval,
		MaxChatMessageLength: c.MaxChatMessageLength,
		ProximityThreshold:   c.ProximityThreshold,
	}

	if c.WorldBounds != "" {
		bounds, err := parseWorldBounds(c.WorldBounds)
		if err != nil {
			return hub.Options{}, err
		}
		opts.WorldBounds = &bounds
	}

	if c.Zones != "" {
		zones, err := parseZones(c.Zones)
		if err != nil {
			return hub.Options{}, err
		}
		opts.Zones = zones
	}

	return opts, nil
}

func parseWorldBounds(value string) (hub.Bounds, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return hub.Bounds{}, fmt.Errorf("world bounds %q: want \"width,height\"", value)
	}

	width, err := parsePositiveFloat(parts[0])
	if err != nil {
		return hub.Bounds{}, fmt.Errorf("world bounds %q: %w", value, err)
	}
	height, err := parsePositiveFloat(parts[1])
	if err != nil {
		return hub.Bounds{}, fmt.Errorf("world bounds %q: %w", value, err)
	}

	return hub.Bounds{Width: width, Height: height}, nil
}

func parseZones(value string) ([]hub.Zone, error) {
	entries := strings.Split(value, ";")
	zones := make([]hub.Zone, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, rect, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("zone %q: want \"name:x,y,width,height\"", entry)
		}

		fields := strings.Split(rect, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("zone %q: want four coordinates", entry)
		}

		coords := make([]float64, 4)
		for i, field := range fields {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", entry, err)
			}
			coords[i] = f
		}

		zones = append(zones, hub.Zone{
			Name:   strings.TrimSpace(name),
			X:      coords[0],
			Y:      coords[1],
			Width:  coords[2],
			Height: coords[3],
		})
	}

	return zones, nil
}

func parsePositiveFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("value %q must be positive", value)
	}
	return f, nil
}
