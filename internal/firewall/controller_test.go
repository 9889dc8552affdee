package firewall

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/apperrors"
)

// newTestController builds a Controller bypassing New, which probes for
// the nft binary and panics if it's missing — not something a unit test
// should depend on.
func newTestController() *Controller {
	return &Controller{
		table: DefaultTable,
		chain: DefaultChain,
		log:   zerolog.Nop(),
		rules: make(map[int32]*rule, 4),
	}
}

func TestExtractHandleFindsMatchingRule(t *testing.T) {
	ruleset := "table inet nftables_svc {\n\tchain allow {\n\t\tudp dport 27700 accept # handle 4\n\t}\n}\n"
	handle, err := extractHandle(ruleset, "udp dport 27700 accept")
	require.NoError(t, err)
	require.Equal(t, "4", handle)
}

func TestExtractHandleNotFoundWhenPatternAbsent(t *testing.T) {
	_, err := extractHandle("udp dport 1 accept # handle 1", "udp dport 2 accept")
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.GetKind(err))
}

func TestExtractHandleEscapesRegexMetacharacters(t *testing.T) {
	ruleset := "ip saddr 10.0.0.1 udp dport 27700 accept # handle 9"
	handle, err := extractHandle(ruleset, "ip saddr 10.0.0.1 udp dport 27700 accept")
	require.NoError(t, err)
	require.Equal(t, "9", handle)

	_, err = extractHandle("ip saddr 10x0x0x1 udp dport 27700 accept # handle 9", "ip saddr 10.0.0.1 udp dport 27700 accept")
	require.Error(t, err)
}

func TestOpenRejectsDuplicateChampionshipWithoutTouchingNft(t *testing.T) {
	c := newTestController()
	c.rules[1] = &rule{port: 27700}

	err := c.Open(context.Background(), 1, 27700)
	require.Error(t, err)
	require.Equal(t, apperrors.KindFirewall, apperrors.GetKind(err))
}

func TestRestrictToIPReportsNotFoundForUnknownChampionship(t *testing.T) {
	c := newTestController()
	err := c.RestrictToIP(context.Background(), 99, nil)
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.GetKind(err))
}

func TestCloseReportsNotFoundForUnknownChampionship(t *testing.T) {
	c := newTestController()
	err := c.Close(context.Background(), 99)
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.GetKind(err))
}

func TestCloseAllNoopWhenNoRulesTracked(t *testing.T) {
	c := newTestController()
	require.NoError(t, c.CloseAll(context.Background()))
}
