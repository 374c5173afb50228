// Package fixture provides simulated detector targets to suite tests.
//
// A suite test asks for a target with Start. In simulated sessions the
// fixture spawns a container under the session's name, captures its output
// to a per-test file, waits until the IOC reports init complete and accepts
// connections, and kills it when the test finishes. In external sessions it binds to the user's target.
//
// Fixtures read the session from BSTEST_* variables, so suite tests skip
// themselves when run with plain `go test`.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/device"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/session"
)

// DetectorName is the name given to every detector handed to tests.
const DetectorName = "det"

// killTimeout bounds the teardown kill of a simulated target.
const killTimeout = 30 * time.Second

// Fixture creates targets for one session.
type Fixture struct {
	Session *session.Context
	Runtime runtime.ContainerRuntime
	Probe   probe.Probe

	// Client carries device reads and writes; nil leaves detectors unable
	// to Trigger or Read.
	Client device.Client

	// PollInterval is the pause between readiness attempts.
	PollInterval time.Duration
}

// Target is a detector ready for a test.
type Target struct {
	Name        string // container name, empty for external targets
	Prefix      string
	Address     string
	CapturePath string
	External    bool

	Handle   *runtime.Handle
	Detector *device.AreaDetector
}

// New creates a Fixture for sctx using the session's container engine.
func New(sctx *session.Context) *Fixture {
	return &Fixture{
		Session:      sctx,
		Runtime:      runtime.New(runtime.EngineType(sctx.Engine), nil),
		Probe:        probe.NewTCPProbe(probe.Resolver{DefaultAddress: sctx.SimAddress}),
		PollInterval: probe.DefaultInterval,
	}
}

// FromEnvironment creates a Fixture for the running bstest session, or
// skips t when the suite runs outside bstest.
func FromEnvironment(t testing.TB) *Fixture {
	t.Helper()

	sctx, err := session.FromEnviron()
	if err != nil {
		t.Skipf("not running under bstest: %v", err)
	}
	if sctx.Debug {
		logging.Setup(true, false, os.Stderr)
	}
	return New(sctx)
}

// Start returns a ready target for t. Teardown is registered with
// t.Cleanup before waiting for readiness, so a target that never becomes
// ready is still killed.
func (f *Fixture) Start(t testing.TB) *Target {
	t.Helper()

	target, err := f.start(context.Background(), t.Name(), t.Cleanup)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return target
}

func (f *Fixture) start(ctx context.Context, testName string, addCleanup func(func())) (*Target, error) {
	sctx := f.Session

	if sctx.External() {
		return &Target{
			Prefix:   sctx.Prefix,
			Address:  sctx.TargetAddress,
			External: true,
			Detector: device.NewAreaDetector(DetectorName, sctx.Prefix, sctx.TargetAddress, f.Client),
		}, nil
	}

	capture, capturePath, err := f.openCapture(testName)
	if err != nil {
		return nil, errors.SpawnFailed(sctx.SimName, err)
	}
	if closer, ok := capture.(io.Closer); ok {
		addCleanup(func() { _ = closer.Close() })
	}

	ready := f.Probe
	if sctx.ReadyMarker != "" {
		watcher := probe.NewOutputWatcher(sctx.ReadyMarker)
		capture = io.MultiWriter(capture, watcher)
		ready = probe.MarkerProbe{Watcher: watcher, Next: f.Probe}
	}

	handle, err := f.Runtime.Spawn(ctx, runtime.SpawnOptions{
		Name:    sctx.SimName,
		Image:   sctx.Image,
		Workdir: sctx.Workdir,
		Publish: sctx.Publish,
		Stdout:  capture,
		Stderr:  capture,
	})
	if err != nil {
		return nil, err
	}

	// Every test reuses the session name, so teardown only returns once the
	// container is gone and the name is free again.
	addCleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
		defer cancel()
		if err := f.Runtime.Kill(ctx, sctx.SimName); err != nil {
			logging.Warn("failed to kill simulated target", "name", sctx.SimName, "error", err)
			return
		}
		select {
		case <-handle.Done():
		case <-ctx.Done():
			logging.Warn("simulated target still running after kill", "name", sctx.SimName, "error", ctx.Err())
		}
	})

	logging.Debug("waiting for simulated target", "name", sctx.SimName, "address", sctx.SimAddress, "limit", f.readyTimeout(), "marker", sctx.ReadyMarker)
	if err := probe.WaitReady(ctx, ready, sctx.SimAddress, f.readyTimeout(), f.PollInterval); err != nil {
		select {
		case <-handle.Done():
			err = fmt.Errorf("container exited before becoming ready (see %s): %w", capturePath, err)
		default:
		}
		return nil, errors.SpawnFailed(sctx.SimName, err)
	}

	return &Target{
		Name:        sctx.SimName,
		Prefix:      sctx.Prefix,
		Address:     sctx.SimAddress,
		CapturePath: capturePath,
		Handle:      handle,
		Detector:    device.NewAreaDetector(DetectorName, sctx.Prefix, sctx.SimAddress, f.Client),
	}, nil
}

func (f *Fixture) readyTimeout() time.Duration {
	if f.Session.ReadyTimeout > 0 {
		return f.Session.ReadyTimeout
	}
	return probe.DefaultReadyLimit
}

// openCapture opens the capture file for testName inside the session's
// capture directory. Without a capture directory output is discarded.
func (f *Fixture) openCapture(testName string) (io.Writer, string, error) {
	dir := f.Session.CaptureDir
	if dir == "" {
		return io.Discard, "", nil
	}

	path, err := securejoin.SecureJoin(dir, CaptureFileName(testName))
	if err != nil {
		return nil, "", fmt.Errorf("capture path for %s: %w", testName, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", fmt.Errorf("create capture directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("open capture file: %w", err)
	}
	return file, path, nil
}

// CaptureFileName maps a test name to a flat file name.
func CaptureFileName(testName string) string {
	r := strings.NewReplacer("/", "_", " ", "_")
	return r.Replace(testName) + ".log"
}
