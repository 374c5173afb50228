package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
)

const (
	// DefaultConfigFile is looked up in the working directory when no
	// config path is given.
	DefaultConfigFile = "bstest.toml"

	DefaultRunnerCommand = "go test -count=1 -p 1 ./suite/..."
	DefaultSuiteDir      = "suite"
	DefaultEngine        = "auto"
	DefaultImage         = "ioc/simdetector"
	DefaultWorkdir       = "/epics/iocs/cam-sim1"
	DefaultNamePrefix    = "bstest-sim-"
	DefaultSimAddress    = "127.0.0.1:5064"
	DefaultCaptureDir    = ".bstest/captures"
	DefaultDevicePrefix  = "XF17BM-BI{Sim-Cam:1}"

	DefaultProbeTimeout = 2 * time.Second
	DefaultReadyTimeout = 10 * time.Second
)

// Duration is a time.Duration that decodes from TOML strings like "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// HarnessConfig holds settings from bstest.toml.
type HarnessConfig struct {
	// Root is the harness resource root; the runner executes there.
	Root      string            `toml:"root"`
	Runner    RunnerConfig      `toml:"runner"`
	Simulator SimulatorConfig   `toml:"simulator"`
	Probe     ProbeConfig       `toml:"probe"`
	Device    DeviceConfig      `toml:"device"`
	Targets   map[string]string `toml:"targets"`
}

type RunnerConfig struct {
	Command string `toml:"command"`
	// Suite is the directory under Root holding the tests; empty skips the check.
	Suite string `toml:"suite"`
}

type SimulatorConfig struct {
	Engine       string   `toml:"engine"` // auto, docker or podman
	Image        string   `toml:"image"`
	Workdir      string   `toml:"workdir"`
	NamePrefix   string   `toml:"name_prefix"`
	Address      string   `toml:"address"`
	Publish      []string `toml:"publish"`
	ReadyTimeout Duration `toml:"ready_timeout"`
	// ReadyMarker must appear in the simulator's output before it counts as
	// ready; empty relies on the connection check alone.
	ReadyMarker string `toml:"ready_marker"`
	CaptureDir  string `toml:"capture_dir"`
}

type ProbeConfig struct {
	Timeout Duration `toml:"timeout"`
	// DefaultAddress is probed for prefixes missing from [targets]. Empty
	// makes unmapped prefixes fail validation.
	DefaultAddress string `toml:"default_address"`
}

type DeviceConfig struct {
	Prefix string `toml:"prefix"`
}

// DefaultHarnessConfig returns the configuration used when no file exists.
func DefaultHarnessConfig() *HarnessConfig {
	return &HarnessConfig{
		Root:   ".",
		Runner: RunnerConfig{Command: DefaultRunnerCommand, Suite: DefaultSuiteDir},
		Simulator: SimulatorConfig{
			Engine:       DefaultEngine,
			Image:        DefaultImage,
			Workdir:      DefaultWorkdir,
			NamePrefix:   DefaultNamePrefix,
			Address:      DefaultSimAddress,
			Publish:      []string{"5064:5064/tcp", "5064:5064/udp"},
			ReadyTimeout: Duration{DefaultReadyTimeout},
			ReadyMarker:  probe.DefaultReadyMarker,
			CaptureDir:   DefaultCaptureDir,
		},
		Probe:  ProbeConfig{Timeout: Duration{DefaultProbeTimeout}},
		Device: DeviceConfig{Prefix: DefaultDevicePrefix},
		// The simulator's own prefix is served on the local CA port.
		Targets: map[string]string{DefaultDevicePrefix: DefaultSimAddress},
	}
}

// LoadHarnessConfig reads the harness configuration from path, overlaying
// it on the defaults. An empty path means DefaultConfigFile in the working
// directory, which may be absent. An explicitly named file must exist.
func LoadHarnessConfig(path string) (*HarnessConfig, error) {
	cfg := DefaultHarnessConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Debug("no harness config, using defaults", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read harness config: %w", err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse harness config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		logging.Warn("unknown keys in harness config", "path", path, "keys", strings.Join(keys, ", "))
	}

	// Relative roots are relative to the config file, not the caller.
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness config %s: %w", path, err)
	}

	logging.Debug("loaded harness config", "path", path, "root", cfg.Root)
	return cfg, nil
}

// Validate checks that the HarnessConfig is usable.
func (c *HarnessConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if strings.TrimSpace(c.Runner.Command) == "" {
		return fmt.Errorf("runner.command is required")
	}

	validEngines := map[string]bool{"auto": true, "docker": true, "podman": true, "": true}
	if !validEngines[c.Simulator.Engine] {
		return fmt.Errorf("invalid simulator.engine: %s (must be auto, docker, or podman)", c.Simulator.Engine)
	}
	if c.Simulator.Image == "" {
		return fmt.Errorf("simulator.image is required")
	}
	if c.Simulator.NamePrefix == "" {
		return fmt.Errorf("simulator.name_prefix is required")
	}
	if c.Simulator.ReadyTimeout.Duration <= 0 {
		return fmt.Errorf("simulator.ready_timeout must be positive (got %s)", c.Simulator.ReadyTimeout)
	}
	if c.Probe.Timeout.Duration <= 0 {
		return fmt.Errorf("probe.timeout must be positive (got %s)", c.Probe.Timeout)
	}

	return nil
}

// SuitePath returns the suite directory resolved against Root, or "" when
// no suite directory is configured.
func (c *HarnessConfig) SuitePath() string {
	if c.Runner.Suite == "" || filepath.IsAbs(c.Runner.Suite) {
		return c.Runner.Suite
	}
	return filepath.Join(c.Root, c.Runner.Suite)
}

// CapturePath returns the capture directory resolved against Root.
func (c *HarnessConfig) CapturePath() string {
	if c.Simulator.CaptureDir == "" || filepath.IsAbs(c.Simulator.CaptureDir) {
		return c.Simulator.CaptureDir
	}
	return filepath.Join(c.Root, c.Simulator.CaptureDir)
}
