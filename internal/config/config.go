// Package config loads process configuration from the environment,
// optionally seeded from a .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the process needs at
// startup. Every field has a default (port range and table/chain names
// match the wire contract), so an empty environment is valid.
type Config struct {
	HTTPAddr string

	PortRangeStart uint16
	PortRangeEnd   uint16

	FirewallTable string
	FirewallChain string

	LogLevel string
}

// Load reads a .env file if present (missing is not an error — the
// teacher's own deployments run with the environment already populated)
// and then the process environment, applying defaults for anything
// unset.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		PortRangeStart: 27700,
		PortRangeEnd:   27800,
		FirewallTable:  getEnv("FIREWALL_TABLE", "nftables_svc"),
		FirewallChain:  getEnv("FIREWALL_CHAIN", "allow"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if v, ok := os.LookupEnv("PORT_RANGE_START"); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return cfg, err
		}
		cfg.PortRangeStart = uint16(n)
	}
	if v, ok := os.LookupEnv("PORT_RANGE_END"); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return cfg, err
		}
		cfg.PortRangeEnd = uint16(n)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
