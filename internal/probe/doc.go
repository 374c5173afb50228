// Package probe decides whether a target is reachable.
//
// A target is named by a logical identifier (its prefix). The Resolver maps
// identifiers to network addresses:
//
//  1. an explicit entry in the [targets] table of bstest.toml
//  2. the identifier itself, when it is a literal host:port
//  3. the configured default address
//
// TCPProbe answers IsReady with a single bounded connection attempt and
// never returns an error to the caller. WaitReady polls a Probe until the
// target answers or a limit elapses; it gates simulated targets after spawn.
package probe
