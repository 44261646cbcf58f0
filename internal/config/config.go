package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/system"
)

const (
	DefaultConfigDir  = "/etc/forage-gw"
	DefaultConfigFile = "forage-gw.toml"
	DefaultStateDir   = "/var/lib/forage-gw"

	DefaultPort           = 18789
	DefaultCommand        = "/usr/local/bin/start-openclaw.sh"
	DefaultServiceConfig  = "/root/.openclaw/openclaw.json"
	DefaultMountPoint     = "/data/openclaw"
	DefaultMode           = "local"
	DefaultBind           = "lan"
	DefaultStartupTimeout = 180 * time.Second
	DefaultExecTimeout    = 10 * time.Second
	DefaultListTimeout    = 10 * time.Second
	DefaultWatchInterval  = 60 * time.Second
)

// containerNameRegex follows the container engines' own naming rule.
var containerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// ValidateContainerName checks that name can address a container and is
// safe to use as a path component.
func ValidateContainerName(name string) error {
	if name == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	if !containerNameRegex.MatchString(name) {
		return fmt.Errorf("invalid container name %q: must start with a letter or digit and contain only letters, digits, underscores, periods, or hyphens", name)
	}
	return nil
}

// Duration is a time.Duration written as a string such as "180s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the supervisor configuration
type Config struct {
	// StateDir holds forage-gw's own state (audit logs).
	StateDir string `toml:"state_dir" yaml:"state_dir"`

	Gateway  GatewayConfig  `toml:"gateway" yaml:"gateway"`
	Timeouts TimeoutsConfig `toml:"timeouts" yaml:"timeouts"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Runtime  RuntimeConfig  `toml:"runtime" yaml:"runtime"`
	Watch    WatchConfig    `toml:"watch" yaml:"watch"`
}

// GatewayConfig describes the managed gateway and the document seeded for it.
type GatewayConfig struct {
	Port              int      `toml:"port" yaml:"port"`
	Command           string   `toml:"command" yaml:"command"`
	ConfigPath        string   `toml:"config_path" yaml:"config_path"`
	Mode              string   `toml:"mode" yaml:"mode"`
	Bind              string   `toml:"bind" yaml:"bind"`
	TrustedProxies    []string `toml:"trusted_proxies" yaml:"trusted_proxies"`
	AllowInsecureAuth bool     `toml:"allow_insecure_auth" yaml:"allow_insecure_auth"`
}

// TimeoutsConfig bounds every blocking sandbox operation.
type TimeoutsConfig struct {
	// Startup bounds each readiness probe, for reuse and fresh start alike.
	Startup Duration `toml:"startup" yaml:"startup"`
	// Exec bounds short commands such as the config write.
	Exec Duration `toml:"exec" yaml:"exec"`
	// List bounds process discovery.
	List Duration `toml:"list" yaml:"list"`
}

// StorageConfig configures the remote bucket mount. An empty Bucket
// disables mounting.
type StorageConfig struct {
	MountPoint string `toml:"mount_point" yaml:"mount_point"`
	Bucket     string `toml:"bucket" yaml:"bucket"`
	// Endpoint is the S3-compatible URL. Empty derives it from the
	// account ID in the sandbox environment.
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
}

// RuntimeConfig selects the container backend.
type RuntimeConfig struct {
	// Engine is "docker" or "podman". Empty auto-detects.
	Engine string `toml:"engine" yaml:"engine"`
	// LogDir is where process output is kept inside the container.
	LogDir string `toml:"log_dir" yaml:"log_dir"`
}

// WatchConfig configures the periodic ensure loop.
type WatchConfig struct {
	Interval Duration `toml:"interval" yaml:"interval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		StateDir: DefaultStateDir,
		Gateway: GatewayConfig{
			Port:              DefaultPort,
			Command:           DefaultCommand,
			ConfigPath:        DefaultServiceConfig,
			Mode:              DefaultMode,
			Bind:              DefaultBind,
			TrustedProxies:    []string{"10.1.0.0"},
			AllowInsecureAuth: true,
		},
		Timeouts: TimeoutsConfig{
			Startup: Duration{DefaultStartupTimeout},
			Exec:    Duration{DefaultExecTimeout},
			List:    Duration{DefaultListTimeout},
		},
		Storage: StorageConfig{
			MountPoint: DefaultMountPoint,
		},
		Watch: WatchConfig{
			Interval: Duration{DefaultWatchInterval},
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultConfigDir, DefaultConfigFile)
}

// Load reads the configuration at path over the defaults. A missing file at
// the default path is not an error; a missing explicit path is.
func Load(fsys system.FileSystem, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()

	if !fsys.Exists(path) {
		if explicit {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return cfg, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port %d out of range", c.Gateway.Port)
	}
	if strings.TrimSpace(c.Gateway.Command) == "" {
		return fmt.Errorf("gateway.command is required")
	}
	if !filepath.IsAbs(c.Gateway.ConfigPath) {
		return fmt.Errorf("gateway.config_path must be absolute, got %q", c.Gateway.ConfigPath)
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}

	timeouts := []struct {
		name string
		d    Duration
	}{
		{"timeouts.startup", c.Timeouts.Startup},
		{"timeouts.exec", c.Timeouts.Exec},
		{"timeouts.list", c.Timeouts.List},
		{"watch.interval", c.Watch.Interval},
	}
	for _, t := range timeouts {
		if t.d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", t.name)
		}
	}

	switch c.Runtime.Engine {
	case "", "docker", "podman":
	default:
		return fmt.Errorf("runtime.engine must be docker or podman, got %q", c.Runtime.Engine)
	}

	if c.Storage.Bucket != "" && !filepath.IsAbs(c.Storage.MountPoint) {
		return fmt.Errorf("storage.mount_point must be absolute when a bucket is set")
	}

	return nil
}
