// Package suite holds the integration tests bstest runs against a detector.
//
// The tests only run inside a bstest session; with plain `go test` they
// skip. Each test obtains its target from a fixture, which spawns and kills
// a simulated detector when no external prefix was given.
package suite
