package testutil

import (
	"embed"
	"path"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// fixtureRoot is where config fixtures are mounted in the mock file system
const fixtureRoot = "/etc/forage-gw"

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// FixtureFS returns a mock file system holding the named fixture, and the
// path it was placed at.
func FixtureFS(name string) (*system.MockFS, string, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, "", err
	}
	fsys := system.NewMockFS()
	p := path.Join(fixtureRoot, name)
	fsys.AddFile(p, data, 0644)
	return fsys, p, nil
}

// LoadConfigFixture decodes and validates a config fixture with config.Load.
func LoadConfigFixture(name string) (*config.Config, error) {
	fsys, p, err := FixtureFS(name)
	if err != nil {
		return nil, err
	}
	return config.Load(fsys, p)
}

// ValidConfig returns the TOML config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}

// ValidYAMLConfig returns the YAML config fixture.
func ValidYAMLConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.yaml")
}

// InvalidConfig loads a fixture that decodes but fails validation.
func InvalidConfig() (*config.Config, error) {
	return LoadConfigFixture("invalid_config.toml")
}

// SeededServiceConfig returns a gateway config as it looks after seeding,
// with comments and trailing commas the gateway tolerates.
func SeededServiceConfig() string {
	data, err := LoadFixture("seeded_openclaw.json")
	if err != nil {
		panic(err)
	}
	return string(data)
}
