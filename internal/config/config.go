package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vburojevic/espdecode/internal/artifact"
	"github.com/vburojevic/espdecode/internal/resolver"
	"github.com/vburojevic/espdecode/internal/transport"
)

// FallbackSpeed is used when the configured speed is not a usable baud rate.
const FallbackSpeed = 115200

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format" yaml:"format"`
	Quiet   bool   `mapstructure:"quiet" yaml:"quiet"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`

	// Symbol artifact and resolver
	Build          string `mapstructure:"build" yaml:"build"`
	ELF            string `mapstructure:"elf" yaml:"elf"`
	Tools          string `mapstructure:"tools" yaml:"tools"`
	Addr2Line      string `mapstructure:"addr2line" yaml:"addr2line"`
	Platform       string `mapstructure:"platform" yaml:"platform"`
	ResolveTimeout string `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`

	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
}

// MonitorConfig holds serial defaults for the monitor command
type MonitorConfig struct {
	Port  string `mapstructure:"port" yaml:"port"`
	Speed int    `mapstructure:"speed" yaml:"speed"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:         "text",
		ELF:            artifact.DefaultELFTemplate,
		Tools:          artifact.DefaultToolsRoot(),
		Platform:       resolver.DefaultPlatform,
		ResolveTimeout: resolver.DefaultTimeout.String(),
		Monitor: MonitorConfig{
			Speed: transport.DefaultBaud,
		},
	}
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("espdecode")
	v.SetConfigType("yaml")

	// Lowest precedence first
	v.AddConfigPath("/etc/espdecode/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "espdecode"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("ESPDECODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "ESPDECODE_FORMAT")
	v.BindEnv("build", "ESPDECODE_BUILD")
	v.BindEnv("elf", "ESPDECODE_ELF")
	v.BindEnv("tools", "ESPDECODE_TOOLS")
	v.BindEnv("addr2line", "ESPDECODE_ADDR2LINE")
	v.BindEnv("monitor.port", "ESPDECODE_PORT")
	v.BindEnv("monitor.speed", "ESPDECODE_SPEED")

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg.Normalize(), nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg.Normalize(), nil
}

// ConfigFile returns the path of the config file Load would use, or ""
func ConfigFile() string {
	v := viper.New()
	v.SetConfigName("espdecode")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}
	return ""
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("no_color", cfg.NoColor)
	v.SetDefault("build", cfg.Build)
	v.SetDefault("elf", cfg.ELF)
	v.SetDefault("tools", cfg.Tools)
	v.SetDefault("addr2line", cfg.Addr2Line)
	v.SetDefault("platform", cfg.Platform)
	v.SetDefault("resolve_timeout", cfg.ResolveTimeout)
	v.SetDefault("monitor.port", cfg.Monitor.Port)
	v.SetDefault("monitor.speed", cfg.Monitor.Speed)
}

// Normalize replaces unusable values with their fallbacks.
func (c *Config) Normalize() *Config {
	if c.Monitor.Speed <= 0 {
		c.Monitor.Speed = FallbackSpeed
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format != "ndjson" {
		c.Format = "text"
	}
	if _, err := c.Timeout(); err != nil {
		c.ResolveTimeout = resolver.DefaultTimeout.String()
	}
	return c
}

// Timeout parses ResolveTimeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.ResolveTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid resolve_timeout %q: %w", c.ResolveTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid resolve_timeout %q: must be positive", c.ResolveTimeout)
	}
	return d, nil
}
