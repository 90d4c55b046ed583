package config

import "time"

// Config holds runtime settings for the qrshare CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the server's gRPC endpoint.
//   - RequestTimeout: upper bound for a single command's round trip.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
}

// Flags lists every flag this package consumes, so the command parser can
// strip them before looking at subcommands.
var Flags = []string{"-a", "-t", "-c", "-config", "--config"}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
