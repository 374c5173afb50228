package testutil

import (
	"embed"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
)

//go:embed fixtures/*.toml
var fixturesFS embed.FS

// LoadFixture loads a TOML fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadHarnessConfigFixture decodes a harness config fixture over the
// defaults, without validating it.
func LoadHarnessConfigFixture(name string) (*config.HarnessConfig, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultHarnessConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidHarnessConfig returns the valid harness config fixture.
func ValidHarnessConfig() (*config.HarnessConfig, error) {
	return LoadHarnessConfigFixture("valid_harness.toml")
}

// InvalidHarnessConfig returns the invalid harness config fixture.
func InvalidHarnessConfig() (*config.HarnessConfig, error) {
	return LoadHarnessConfigFixture("invalid_harness.toml")
}
