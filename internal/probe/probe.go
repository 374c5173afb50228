package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
)

const (
	// DefaultTimeout bounds a single readiness attempt.
	DefaultTimeout = 2 * time.Second

	// DefaultReadyLimit bounds the wait for a freshly spawned target.
	DefaultReadyLimit = 10 * time.Second

	// DefaultInterval is the pause between polling attempts.
	DefaultInterval = 250 * time.Millisecond

	// DefaultAddress is the EPICS Channel Access server port on localhost.
	DefaultAddress = "127.0.0.1:5064"
)

// Probe reports whether a target answers within timeout.
type Probe interface {
	IsReady(ctx context.Context, id string, timeout time.Duration) bool
}

// Resolver maps logical target identifiers to network addresses.
type Resolver struct {
	Targets map[string]string

	// DefaultAddress, if set, is used for identifiers that are neither in
	// Targets nor a host:port. When empty such identifiers do not resolve.
	DefaultAddress string
}

// Resolve returns the network address for id: its Targets entry, id itself
// when it is a host:port, or DefaultAddress.
func (r Resolver) Resolve(id string) (string, error) {
	if addr, ok := r.Targets[id]; ok && addr != "" {
		return addr, nil
	}
	if isHostPort(id) {
		return id, nil
	}
	if r.DefaultAddress != "" {
		return r.DefaultAddress, nil
	}
	return "", fmt.Errorf("no address known for target %q", id)
}

func isHostPort(s string) bool {
	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n < 65536
}

// TCPProbe checks readiness by opening a TCP connection to the resolved address.
type TCPProbe struct {
	Resolver Resolver
	dialer   net.Dialer
}

// NewTCPProbe creates a TCPProbe using r to resolve identifiers.
func NewTCPProbe(r Resolver) *TCPProbe {
	return &TCPProbe{Resolver: r}
}

// IsReady reports whether a connection to id succeeds within timeout.
func (p *TCPProbe) IsReady(ctx context.Context, id string, timeout time.Duration) bool {
	addr, err := p.Resolver.Resolve(id)
	if err != nil {
		logging.Debug("readiness probe", "target", id, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logging.Debug("readiness probe", "target", id, "address", addr, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

// WaitReady polls p until id answers or limit elapses. Each attempt is
// bounded by the time remaining, so WaitReady returns within limit plus
// scheduling overhead.
func WaitReady(ctx context.Context, p Probe, id string, limit, interval time.Duration) error {
	if limit <= 0 {
		limit = DefaultReadyLimit
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(limit)
	attempts := 0

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("target %s not ready after %v (%d attempts)", id, limit, attempts)
		}

		attempts++
		if p.IsReady(ctx, id, min(remaining, DefaultTimeout)) {
			logging.Debug("target ready", "target", id, "attempts", attempts, "elapsed", time.Since(start))
			return nil
		}

		wait := min(interval, time.Until(deadline))
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for target %s: %w", id, ctx.Err())
		case <-timer.C:
		}
	}
}
