// Package firewall manages per-championship ingress rules by shelling out
// to the nft binary, the same way the admin would from a terminal: add a
// rule, list the ruleset back to recover its handle, and later delete by
// that handle. There is no netlink client here on purpose — nft's text
// output is the contract this package was built against.
package firewall

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/racewire/telemetry-hub/internal/apperrors"
	"github.com/racewire/telemetry-hub/internal/metrics"
)

const (
	// DefaultTable is the nft table this controller manages rules in.
	DefaultTable = "nftables_svc"
	// DefaultChain is the nft chain within DefaultTable holding the rules.
	DefaultChain = "allow"
)

type rule struct {
	port   uint16
	handle string
	ip     net.IP
}

// Controller opens, narrows, and closes UDP ingress rules for championship
// ports. A single instance is shared across all championships; rules are
// keyed by championship id.
type Controller struct {
	table string
	chain string
	log   zerolog.Logger

	mu    sync.RWMutex
	rules map[int32]*rule
}

// New builds a Controller bound to table/chain. On Linux it panics at
// construction if nft is missing, since the process cannot do its job
// without it; on every other platform firewall operations log a warning
// and succeed without touching the network.
func New(table, chain string, log zerolog.Logger) *Controller {
	if platformSupported() {
		probeOrPanic()
	}
	return &Controller{
		table: table,
		chain: chain,
		log:   log,
		rules: make(map[int32]*rule, 10),
	}
}

// Open adds an unrestricted UDP accept rule for port, keyed by id.
func (c *Controller) Open(ctx context.Context, id int32, port uint16) error {
	if !platformSupported() {
		c.log.Warn().Msg("firewall not supported on this platform")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.rules[id]; exists {
		metrics.FirewallOperations.WithLabelValues("open", "error").Inc()
		return apperrors.Errorf(apperrors.KindFirewall, "firewall: rule for championship %d already open", id)
	}

	if err := c.nft(ctx,
		"add", "rule", "inet", c.table, c.chain,
		"udp", "dport", strconv.Itoa(int(port)), "accept",
	); err != nil {
		metrics.FirewallOperations.WithLabelValues("open", "error").Inc()
		return err
	}

	pattern := fmt.Sprintf("udp dport %d accept", port)
	handle, err := c.handleFor(ctx, pattern)
	if err != nil {
		metrics.FirewallOperations.WithLabelValues("open", "error").Inc()
		return err
	}

	c.rules[id] = &rule{port: port, handle: handle}
	metrics.FirewallOperations.WithLabelValues("open", "ok").Inc()
	return nil
}

// RestrictToIP narrows an existing rule to only accept traffic from ip.
// It deletes the old rule and adds a new IP-scoped one; if the add fails
// after the delete succeeds, the port is left with no rule at all rather
// than the stale unrestricted one — this mirrors the two-step sequence
// the original implementation uses and its same partial-failure window.
func (c *Controller) RestrictToIP(ctx context.Context, id int32, ip net.IP) error {
	if !platformSupported() {
		c.log.Warn().Msg("firewall not supported on this platform")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rules[id]
	if !ok {
		metrics.FirewallOperations.WithLabelValues("restrict", "error").Inc()
		return apperrors.Errorf(apperrors.KindNotFound, "firewall: no rule for championship %d", id)
	}

	if err := c.nft(ctx, "delete", "rule", "inet", c.table, c.chain, "handle", r.handle); err != nil {
		metrics.FirewallOperations.WithLabelValues("restrict", "error").Inc()
		return err
	}

	if err := c.nft(ctx,
		"add", "rule", "inet", c.table, c.chain,
		"ip", "saddr", ip.String(), "udp", "dport", strconv.Itoa(int(r.port)), "accept",
	); err != nil {
		metrics.FirewallOperations.WithLabelValues("restrict", "error").Inc()
		return err
	}

	pattern := fmt.Sprintf("ip saddr %s udp dport %d accept", ip.String(), r.port)
	handle, err := c.handleFor(ctx, pattern)
	if err != nil {
		metrics.FirewallOperations.WithLabelValues("restrict", "error").Inc()
		return err
	}

	r.handle = handle
	r.ip = ip
	metrics.FirewallOperations.WithLabelValues("restrict", "ok").Inc()
	return nil
}

// Close removes the rule for id.
func (c *Controller) Close(ctx context.Context, id int32) error {
	if !platformSupported() {
		c.log.Warn().Msg("firewall not supported on this platform")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rules[id]
	if !ok {
		metrics.FirewallOperations.WithLabelValues("close", "error").Inc()
		return apperrors.Errorf(apperrors.KindNotFound, "firewall: no rule for championship %d", id)
	}

	if err := c.nft(ctx, "delete", "rule", "inet", c.table, c.chain, "handle", r.handle); err != nil {
		metrics.FirewallOperations.WithLabelValues("close", "error").Inc()
		return err
	}

	delete(c.rules, id)
	metrics.FirewallOperations.WithLabelValues("close", "ok").Inc()
	return nil
}

// CloseAll tears down every rule this controller currently tracks. It
// stops at the first failure, leaving the remaining rules in place rather
// than masking which one failed — used for best-effort cleanup on
// shutdown, where the caller logs and moves on regardless.
func (c *Controller) CloseAll(ctx context.Context) error {
	if !platformSupported() {
		c.log.Warn().Msg("firewall not supported on this platform")
		return nil
	}

	c.mu.RLock()
	ids := make([]int32, 0, len(c.rules))
	for id := range c.rules {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	for _, id := range ids {
		if err := c.Close(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) nft(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "nft", args...).CombinedOutput()
	if err != nil {
		c.log.Error().Str("output", string(out)).Msgf("firewall: nft %v failed", args)
		return apperrors.Wrapf(err, apperrors.KindFirewall, "firewall: nft %v failed: %s", args, out)
	}
	return nil
}

func (c *Controller) ruleset(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "nft", "-a", "list", "ruleset").CombinedOutput()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindFirewall, "firewall: listing ruleset failed")
	}
	return string(out), nil
}

func (c *Controller) handleFor(ctx context.Context, searchPattern string) (string, error) {
	ruleset, err := c.ruleset(ctx)
	if err != nil {
		return "", err
	}
	return extractHandle(ruleset, searchPattern)
}

// extractHandle pulls the handle number nft prints alongside a rule line
// in `nft -a list ruleset` output, e.g. "udp dport 27700 accept # handle 4".
func extractHandle(ruleset, searchPattern string) (string, error) {
	re := regexp.MustCompile(regexp.QuoteMeta(searchPattern) + `\s+#\s+handle\s+(\d+)`)
	m := re.FindStringSubmatch(ruleset)
	if m == nil {
		return "", apperrors.Errorf(apperrors.KindNotFound, "firewall: no handle found for rule %q", searchPattern)
	}
	return m[1], nil
}
