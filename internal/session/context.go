package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
)

// Mode says where the tests point.
type Mode string

const (
	ModeExternal  Mode = "external"
	ModeSimulated Mode = "simulated"
)

// Environment variables carrying the session context to the runner.
const (
	EnvSession      = "BSTEST_SESSION"
	EnvMode         = "BSTEST_MODE"
	EnvPrefix       = "BSTEST_PREFIX"
	EnvTarget       = "BSTEST_TARGET_ADDRESS"
	EnvSimName      = "BSTEST_SIM_NAME"
	EnvSimImage     = "BSTEST_SIM_IMAGE"
	EnvSimWorkdir   = "BSTEST_SIM_WORKDIR"
	EnvSimAddress   = "BSTEST_SIM_ADDRESS"
	EnvSimPublish   = "BSTEST_SIM_PUBLISH"
	EnvReadyTimeout = "BSTEST_SIM_READY_TIMEOUT"
	EnvReadyMarker  = "BSTEST_SIM_READY_MARKER"
	EnvEngine       = "BSTEST_ENGINE"
	EnvCaptureDir   = "BSTEST_CAPTURE_DIR"
	EnvDebug        = "BSTEST_DEBUG"
)

// Context is the per-session state shared by the orchestrator, the runner
// and the fixtures. It is built once and never mutated.
type Context struct {
	ID            string
	Mode          Mode
	Prefix        string // device prefix the tests bind to
	TargetAddress string // external target address, if known

	SimName      string
	Image        string
	Workdir      string
	SimAddress   string
	Publish      []string
	ReadyTimeout time.Duration
	ReadyMarker  string
	Engine       string
	CaptureDir   string

	Debug bool
}

// NewContext builds the context for a validated session.
func NewContext(cfg *config.SessionConfig, h *config.HarnessConfig, engine string, resolver probe.Resolver) *Context {
	id := uuid.NewString()
	c := &Context{
		ID:           id,
		Mode:         ModeSimulated,
		Prefix:       h.Device.Prefix,
		SimName:      h.Simulator.NamePrefix + shortID(id),
		Image:        h.Simulator.Image,
		Workdir:      h.Simulator.Workdir,
		SimAddress:   h.Simulator.Address,
		Publish:      h.Simulator.Publish,
		ReadyTimeout: h.Simulator.ReadyTimeout.Duration,
		ReadyMarker:  h.Simulator.ReadyMarker,
		Engine:       engine,
		CaptureDir:   h.CapturePath(),
		Debug:        cfg.Debug(),
	}

	if cfg.HasTarget() {
		c.Mode = ModeExternal
		c.Prefix = cfg.TargetPrefix()
		if addr, err := resolver.Resolve(cfg.TargetPrefix()); err == nil {
			c.TargetAddress = addr
		}
	}

	return c
}

func shortID(id string) string {
	return strings.ReplaceAll(id, "-", "")[:8]
}

// External reports whether the session targets a pre-existing instance.
func (c *Context) External() bool {
	return c.Mode == ModeExternal
}

// ToEnv returns the context as KEY=value pairs for the runner's environment.
func (c *Context) ToEnv() []string {
	env := []string{
		EnvSession + "=" + c.ID,
		EnvMode + "=" + string(c.Mode),
		EnvPrefix + "=" + c.Prefix,
		EnvTarget + "=" + c.TargetAddress,
		EnvSimName + "=" + c.SimName,
		EnvSimImage + "=" + c.Image,
		EnvSimWorkdir + "=" + c.Workdir,
		EnvSimAddress + "=" + c.SimAddress,
		EnvSimPublish + "=" + strings.Join(c.Publish, ","),
		EnvReadyTimeout + "=" + c.ReadyTimeout.String(),
		EnvReadyMarker + "=" + c.ReadyMarker,
		EnvEngine + "=" + c.Engine,
		EnvCaptureDir + "=" + c.CaptureDir,
	}
	if c.Debug {
		env = append(env, EnvDebug+"=1")
	}
	return env
}

// FromEnv rebuilds a Context from the variables written by ToEnv.
// It fails when no session is present, i.e. outside a bstest run.
func FromEnv(lookup func(string) (string, bool)) (*Context, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	id := get(EnvSession)
	if id == "" {
		return nil, fmt.Errorf("%s is not set; run the suite through bstest", EnvSession)
	}

	c := &Context{
		ID:            id,
		Mode:          Mode(get(EnvMode)),
		Prefix:        get(EnvPrefix),
		TargetAddress: get(EnvTarget),
		SimName:       get(EnvSimName),
		Image:         get(EnvSimImage),
		Workdir:       get(EnvSimWorkdir),
		SimAddress:    get(EnvSimAddress),
		ReadyMarker:   get(EnvReadyMarker),
		Engine:        get(EnvEngine),
		CaptureDir:    get(EnvCaptureDir),
	}

	switch c.Mode {
	case ModeExternal, ModeSimulated:
	default:
		return nil, fmt.Errorf("invalid %s: %q", EnvMode, c.Mode)
	}

	if publish := get(EnvSimPublish); publish != "" {
		c.Publish = strings.Split(publish, ",")
	}

	if raw := get(EnvReadyTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvReadyTimeout, err)
		}
		c.ReadyTimeout = d
	}

	if raw := get(EnvDebug); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		c.Debug = debug
	}

	return c, nil
}

// FromEnviron reads the context from the process environment.
func FromEnviron() (*Context, error) {
	return FromEnv(os.LookupEnv)
}
