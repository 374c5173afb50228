// Package device models the simulated detector the suite tests against.
//
// The device-control protocol itself is not implemented here. A Client
// supplied by the caller carries reads and writes; this package names the
// process variables and composes them into capability interfaces.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
)

// ErrNoClient is returned by operations that need a Client when none was given.
var ErrNoClient = errors.New("no device client configured")

// Client reads and writes process variables by full name.
type Client interface {
	Get(ctx context.Context, pv string) (any, error)
	Put(ctx context.Context, pv string, value any) error
}

// Triggerable devices start an acquisition and wait for it to finish.
type Triggerable interface {
	Trigger(ctx context.Context) error
}

// Readable devices report their current values.
type Readable interface {
	Read(ctx context.Context) (map[string]Reading, error)
}

// Detector is a device that can be triggered and read.
type Detector interface {
	Triggerable
	Readable
}

// Reading is a single value with the time it was read.
type Reading struct {
	Value     any
	Timestamp time.Time
}

// Signal is one process variable.
type Signal struct {
	PV     string
	client Client
}

// Get reads the signal.
func (s Signal) Get(ctx context.Context) (any, error) {
	if s.client == nil {
		return nil, ErrNoClient
	}
	v, err := s.client.Get(ctx, s.PV)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.PV, err)
	}
	return v, nil
}

// Put writes the signal.
func (s Signal) Put(ctx context.Context, value any) error {
	if s.client == nil {
		return ErrNoClient
	}
	if err := s.client.Put(ctx, s.PV, value); err != nil {
		return fmt.Errorf("put %s: %w", s.PV, err)
	}
	return nil
}

// Cam is the camera plugin of an area detector, rooted at "<prefix>cam1:".
type Cam struct {
	Acquire       Signal
	AcquireTime   Signal
	AcquirePeriod Signal
	ArrayCounter  Signal
	DetectorState Signal
}

func newCam(root string, client Client) *Cam {
	sig := func(suffix string) Signal { return Signal{PV: root + suffix, client: client} }
	return &Cam{
		Acquire:       sig("Acquire"),
		AcquireTime:   sig("AcquireTime"),
		AcquirePeriod: sig("AcquirePeriod"),
		ArrayCounter:  sig("ArrayCounter_RBV"),
		DetectorState: sig("DetectorState_RBV"),
	}
}

// AreaDetector is a single-trigger simulated area detector.
type AreaDetector struct {
	Name    string
	Prefix  string
	Address string

	Cam *Cam

	// ACPeriod is the acquire period, exposed at the top level.
	ACPeriod Signal

	// Probe answers Reachable.
	Probe probe.Probe

	// PollInterval is how often Trigger checks for completion.
	PollInterval time.Duration
}

// NewAreaDetector binds a detector to prefix. Address is the network
// endpoint of the target, used by Reachable.
func NewAreaDetector(name, prefix, address string, client Client) *AreaDetector {
	root := prefix + "cam1:"
	return &AreaDetector{
		Name:         name,
		Prefix:       prefix,
		Address:      address,
		Cam:          newCam(root, client),
		ACPeriod:     Signal{PV: root + "AcquirePeriod", client: client},
		Probe:        probe.NewTCPProbe(probe.Resolver{}),
		PollInterval: 50 * time.Millisecond,
	}
}

// Trigger starts one acquisition and waits until the camera reports done.
func (d *AreaDetector) Trigger(ctx context.Context) error {
	if err := d.Cam.Acquire.Put(ctx, 1); err != nil {
		return err
	}

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		v, err := d.Cam.Acquire.Get(ctx)
		if err != nil {
			return err
		}
		if n, ok := asFloat(v); ok && n == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("trigger %s: %w", d.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Read returns the camera's acquisition settings and frame counter, keyed
// by "<name>_cam_<field>".
func (d *AreaDetector) Read(ctx context.Context) (map[string]Reading, error) {
	fields := []struct {
		key string
		sig Signal
	}{
		{"acquire_time", d.Cam.AcquireTime},
		{"acquire_period", d.Cam.AcquirePeriod},
		{"array_counter", d.Cam.ArrayCounter},
	}

	out := make(map[string]Reading, len(fields))
	for _, f := range fields {
		v, err := f.sig.Get(ctx)
		if err != nil {
			return nil, err
		}
		out[d.Name+"_cam_"+f.key] = Reading{Value: v, Timestamp: time.Now()}
	}
	return out, nil
}

// Reachable reports whether the detector's network endpoint accepts a
// connection within timeout.
func (d *AreaDetector) Reachable(ctx context.Context, timeout time.Duration) bool {
	if d.Address == "" {
		return false
	}
	return d.Probe.IsReady(ctx, d.Address, timeout)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var _ Detector = (*AreaDetector)(nil)
