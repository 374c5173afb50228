package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/probe"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/system"
)

// RawArgs are the user-supplied session options before validation.
// Empty strings mean "not supplied".
type RawArgs struct {
	Prefix         string
	Output         string
	Verbose        bool
	Debug          bool
	IgnoreWarnings bool
}

// SessionConfig is a validated, immutable set of session options.
type SessionConfig struct {
	targetPrefix     string
	outputPath       string
	verbose          bool
	debug            bool
	suppressWarnings bool
}

func (c *SessionConfig) TargetPrefix() string   { return c.targetPrefix }
func (c *SessionConfig) OutputPath() string     { return c.outputPath }
func (c *SessionConfig) Verbose() bool          { return c.verbose }
func (c *SessionConfig) Debug() bool            { return c.debug }
func (c *SessionConfig) SuppressWarnings() bool { return c.suppressWarnings }

// HasTarget reports whether an external target was supplied.
func (c *SessionConfig) HasTarget() bool { return c.targetPrefix != "" }

// HasOutput reports whether output goes to a file.
func (c *SessionConfig) HasOutput() bool { return c.outputPath != "" }

// Validate turns raw arguments into a SessionConfig. It stops at the first
// failing rule and performs no side effects beyond probing the target.
func Validate(ctx context.Context, raw RawArgs, p probe.Probe, fs system.FileSystem, probeTimeout time.Duration) (*SessionConfig, error) {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	if raw.Prefix != "" {
		logging.Debug("probing target", "prefix", raw.Prefix, "timeout", probeTimeout)
		if !p.IsReady(ctx, raw.Prefix, probeTimeout) {
			return nil, errors.ValidationFailed(fmt.Sprintf("connection timeout to target with prefix %s", raw.Prefix))
		}
	}

	if raw.Output != "" {
		if err := checkOutputPath(fs, raw.Output); err != nil {
			return nil, err
		}
	}

	return &SessionConfig{
		targetPrefix:     raw.Prefix,
		outputPath:       raw.Output,
		verbose:          raw.Verbose,
		debug:            raw.Debug,
		suppressWarnings: raw.IgnoreWarnings,
	}, nil
}

func checkOutputPath(fs system.FileSystem, path string) error {
	if !fs.Exists(path) {
		if !fs.Writable(filepath.Dir(path)) {
			return errors.ValidationFailed(fmt.Sprintf("output path %s does not exist and cannot be created", path))
		}
		return nil
	}
	if fs.IsDir(path) || !fs.Writable(path) {
		return errors.ValidationFailed(fmt.Sprintf("output path %s exists but is not writable", path))
	}
	return nil
}
