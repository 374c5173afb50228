package fixture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/device"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/session"
)

type stubProbe struct {
	ready bool
}

func (p *stubProbe) IsReady(ctx context.Context, id string, timeout time.Duration) bool {
	return p.ready
}

// cleanups collects registered teardown functions like testing.T does.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func simulatedSession(t *testing.T) *session.Context {
	return &session.Context{
		ID:           "0d9f3c1e-7a0b-4c1e-9a51-5d2f8e6b7c10",
		Mode:         session.ModeSimulated,
		Prefix:       "XF17BM-BI{Sim-Cam:1}",
		SimName:      "bstest-sim-0d9f3c1e",
		Image:        "ioc/simdetector",
		Workdir:      "/epics/iocs/cam-sim1",
		SimAddress:   "127.0.0.1:5064",
		Publish:      []string{"5064:5064/tcp"},
		ReadyTimeout: 200 * time.Millisecond,
		Engine:       "mock",
		CaptureDir:   filepath.Join(t.TempDir(), "captures"),
	}
}

func newFixture(sctx *session.Context, ready bool) (*Fixture, *runtime.MockRuntime) {
	rt := runtime.NewMockRuntime("ioc/simdetector")
	return &Fixture{
		Session:      sctx,
		Runtime:      rt,
		Probe:        &stubProbe{ready: ready},
		PollInterval: 10 * time.Millisecond,
	}, rt
}

func TestStart_Simulated(t *testing.T) {
	sctx := simulatedSession(t)
	f, rt := newFixture(sctx, true)
	rt.SpawnOutput = "iocInit: All initialization complete\n"

	var c cleanups
	target, err := f.start(context.Background(), "TestAcquire/single", c.add)
	require.NoError(t, err)

	assert.Equal(t, sctx.SimName, target.Name)
	assert.Equal(t, "XF17BM-BI{Sim-Cam:1}", target.Detector.Prefix)
	assert.Equal(t, "127.0.0.1:5064", target.Detector.Address)
	assert.False(t, target.External)

	spawns := rt.GetCallsFor("Spawn")
	require.Len(t, spawns, 1)
	opts := spawns[0].Args[0].(runtime.SpawnOptions)
	assert.Equal(t, sctx.SimName, opts.Name)
	assert.Equal(t, "/epics/iocs/cam-sim1", opts.Workdir)

	assert.Equal(t, filepath.Join(sctx.CaptureDir, "TestAcquire_single.log"), target.CapturePath)

	c.run()
	assert.Len(t, rt.GetCallsFor("Kill"), 1)

	data, err := os.ReadFile(target.CapturePath)
	require.NoError(t, err)
	assert.Equal(t, "iocInit: All initialization complete\n", string(data))
}

func TestStart_CleanupRegisteredWhenNeverReady(t *testing.T) {
	sctx := simulatedSession(t)
	f, rt := newFixture(sctx, false)

	var c cleanups
	_, err := f.start(context.Background(), "TestAcquire", c.add)
	require.Error(t, err)
	assert.Equal(t, errors.KindSpawn, errors.KindOf(err))
	assert.Contains(t, err.Error(), "not ready")

	assert.Empty(t, rt.GetCallsFor("Kill"), "kill runs at teardown, not before")
	c.run()
	assert.Len(t, rt.GetCallsFor("Kill"), 1)

	running, _ := rt.IsRunning(context.Background(), sctx.SimName)
	assert.False(t, running)
}

func TestStart_NameCollision(t *testing.T) {
	sctx := simulatedSession(t)
	f, rt := newFixture(sctx, true)
	rt.AddContainer(sctx.SimName)

	var c cleanups
	_, err := f.start(context.Background(), "TestAcquire", c.add)
	require.Error(t, err)
	assert.Equal(t, errors.KindSpawn, errors.KindOf(err))

	c.run()
	assert.Empty(t, rt.GetCallsFor("Kill"), "a container we did not spawn must not be killed")
}

func TestStart_External(t *testing.T) {
	sctx := &session.Context{
		ID:            "x",
		Mode:          session.ModeExternal,
		Prefix:        "XF:10IDC-BI{Cam:1}",
		TargetAddress: "10.0.0.5:5064",
	}
	f, rt := newFixture(sctx, true)
	f.Client = device.NewMockClient(nil)

	var c cleanups
	target, err := f.start(context.Background(), "TestAcquire", c.add)
	require.NoError(t, err)

	assert.True(t, target.External)
	assert.Equal(t, "XF:10IDC-BI{Cam:1}", target.Detector.Prefix)
	assert.Equal(t, "10.0.0.5:5064", target.Address)
	assert.Empty(t, rt.GetCalls(), "external targets are never spawned")
	assert.Empty(t, c)
}

func TestStart_NoCaptureDir(t *testing.T) {
	sctx := simulatedSession(t)
	sctx.CaptureDir = ""
	f, _ := newFixture(sctx, true)

	var c cleanups
	target, err := f.start(context.Background(), "TestAcquire", c.add)
	require.NoError(t, err)
	assert.Empty(t, target.CapturePath)
	c.run()
}

func TestStart_WithTestingT(t *testing.T) {
	sctx := simulatedSession(t)
	f, rt := newFixture(sctx, true)

	t.Run("acquire", func(t *testing.T) {
		target := f.Start(t)
		assert.NotNil(t, target.Detector)
	})

	assert.Len(t, rt.GetCallsFor("Kill"), 1, "subtest cleanup should kill the target")
}

// Each test in a session spawns under the same name; an engine releases
// the name only once the killed container has been removed.
func TestStart_ConsecutiveTestsReuseSessionName(t *testing.T) {
	sctx := simulatedSession(t)
	f, rt := newFixture(sctx, true)
	rt.ReleaseDelay = 100 * time.Millisecond

	for _, name := range []string{"trigger", "read", "reachable"} {
		t.Run(name, func(t *testing.T) {
			target := f.Start(t)
			assert.Equal(t, sctx.SimName, target.Name)
		})
	}

	assert.Len(t, rt.GetCallsFor("Spawn"), 3)
	assert.Len(t, rt.GetCallsFor("Kill"), 3)
	running, _ := rt.IsRunning(context.Background(), sctx.SimName)
	assert.False(t, running, "the last target should be gone after its test")
}

func TestStart_ConnectionBeforeInitIsNotReady(t *testing.T) {
	sctx := simulatedSession(t)
	sctx.ReadyMarker = probe.DefaultReadyMarker
	f, rt := newFixture(sctx, true) // the published port accepts at once
	rt.SpawnOutput = "Starting iocInit\n"

	var c cleanups
	defer c.run()
	_, err := f.start(context.Background(), "TestAcquire", c.add)

	require.Error(t, err)
	assert.Equal(t, errors.KindSpawn, errors.KindOf(err))
	assert.Contains(t, err.Error(), "not ready")
}

func TestStart_ReadyAfterInitComplete(t *testing.T) {
	sctx := simulatedSession(t)
	sctx.ReadyMarker = probe.DefaultReadyMarker
	f, rt := newFixture(sctx, true)
	rt.SpawnOutput = "Starting iocInit\niocRun: All initialization complete\n"

	var c cleanups
	target, err := f.start(context.Background(), "TestAcquire", c.add)
	require.NoError(t, err)
	c.run()

	data, err := os.ReadFile(target.CapturePath)
	require.NoError(t, err)
	assert.Equal(t, rt.SpawnOutput, string(data), "the capture file still receives all output")
}

func TestCaptureFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TestAcquire", "TestAcquire.log"},
		{"TestAcquire/period 0.5s", "TestAcquire_period_0.5s.log"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CaptureFileName(tt.in))
	}
}

func TestFromEnvironment_SkipsOutsideSession(t *testing.T) {
	t.Setenv(session.EnvSession, "")

	var reached bool
	t.Run("inner", func(t *testing.T) {
		FromEnvironment(t)
		reached = true
	})
	assert.False(t, reached, "FromEnvironment should skip without a session")
}

func TestFromEnvironment(t *testing.T) {
	sctx := simulatedSession(t)
	for _, kv := range sctx.ToEnv() {
		k, v, _ := strings.Cut(kv, "=")
		t.Setenv(k, v)
	}

	f := FromEnvironment(t)
	assert.Equal(t, sctx.SimName, f.Session.SimName)
	assert.Equal(t, "unavailable", f.Runtime.Name(), "unknown engine names fall back to an unavailable runtime")
}
