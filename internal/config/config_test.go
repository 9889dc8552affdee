package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, uint16(27700), cfg.PortRangeStart)
	require.Equal(t, uint16(27800), cfg.PortRangeEnd)
	require.Equal(t, "nftables_svc", cfg.FirewallTable)
	require.Equal(t, "allow", cfg.FirewallChain)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PORT_RANGE_START", "30000")
	t.Setenv("PORT_RANGE_END", "30100")
	t.Setenv("FIREWALL_TABLE", "custom_table")
	t.Setenv("FIREWALL_CHAIN", "custom_chain")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, uint16(30000), cfg.PortRangeStart)
	require.Equal(t, uint16(30100), cfg.PortRangeEnd)
	require.Equal(t, "custom_table", cfg.FirewallTable)
	require.Equal(t, "custom_chain", cfg.FirewallChain)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidPortRange(t *testing.T) {
	t.Setenv("PORT_RANGE_START", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
