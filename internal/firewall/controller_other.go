//go:build !linux

package firewall

// platformSupported reports whether this host can plausibly run nft.
// nftables is Linux-only, so every other platform takes the no-op path.
func platformSupported() bool { return false }

// probeOrPanic is a no-op off Linux: there is nothing to probe for.
func probeOrPanic() {}
