// Package config loads the service and CLI settings from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"roadcover/internal/opt"
)

var ErrInvalid = errors.New("config: invalid")

// Telemetry selects the trace exporter.
type Telemetry struct {
	Exporter    string `yaml:"exporter" mapstructure:"exporter"` // "", "stdout" or "otlp"
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName string `yaml:"serviceName" mapstructure:"serviceName"`
}

// Stream tunes the live observer feed.
type Stream struct {
	Rate   float64 `yaml:"rate" mapstructure:"rate"`
	Burst  int     `yaml:"burst" mapstructure:"burst"`
	Buffer int     `yaml:"buffer" mapstructure:"buffer"`
}

type Config struct {
	Port        string     `yaml:"port" mapstructure:"port"`
	DatabaseURL string     `yaml:"databaseURL" mapstructure:"databaseURL"`
	RedisURL    string     `yaml:"redisURL" mapstructure:"redisURL"`
	Network     string     `yaml:"network" mapstructure:"network"`
	Algorithm   string     `yaml:"algorithm" mapstructure:"algorithm"`
	Planner     opt.Params `yaml:"planner" mapstructure:"planner"`
	Stream      Stream     `yaml:"stream" mapstructure:"stream"`
	Telemetry   Telemetry  `yaml:"telemetry" mapstructure:"telemetry"`
}

func Default() Config {
	return Config{
		Port:      "8080",
		Algorithm: "greedy",
		Planner:   opt.DefaultParams(),
		Stream:    Stream{Rate: 200, Burst: 50, Buffer: 256},
		Telemetry: Telemetry{ServiceName: "roadcover"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from PORT, DATABASE_URL, REDIS_URL,
// ROADCOVER_DEPOT and ROADCOVER_MAX_DISTANCE.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := getenv("ROADCOVER_DEPOT"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: ROADCOVER_DEPOT: %v", ErrInvalid, err)
		}
		c.Planner.Depot = id
	}
	if v := getenv("ROADCOVER_MAX_DISTANCE"); v != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: ROADCOVER_MAX_DISTANCE: %v", ErrInvalid, err)
		}
		c.Planner.MaxDistance = d
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: port %q", ErrInvalid, c.Port)
	}
	if _, err := opt.NewSolver(c.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Telemetry.Exporter {
	case "", "stdout", "otlp":
	default:
		return fmt.Errorf("%w: telemetry exporter %q", ErrInvalid, c.Telemetry.Exporter)
	}
	if c.Stream.Rate < 0 || c.Stream.Burst < 0 || c.Stream.Buffer < 0 {
		return fmt.Errorf("%w: stream settings must be >= 0", ErrInvalid)
	}
	return c.Planner.Validate()
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
