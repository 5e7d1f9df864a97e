package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vburojevic/espdecode/internal/config"
)

// ConfigCmd groups the config subcommands
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Show the effective configuration"`
	Path ConfigPathCmd `cmd:"" help:"Show the config file in use"`
}

// ConfigShowCmd prints the configuration loaded from files and environment
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]interface{}{
			"type":            "config",
			"schemaVersion":   1,
			"format":          cfg.Format,
			"build":           cfg.Build,
			"elf":             cfg.ELF,
			"tools":           cfg.Tools,
			"addr2line":       cfg.Addr2Line,
			"platform":        cfg.Platform,
			"resolve_timeout": cfg.ResolveTimeout,
			"monitor": map[string]interface{}{
				"port":  cfg.Monitor.Port,
				"speed": cfg.Monitor.Speed,
			},
		})
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(globals.Stdout, "# Current configuration")
	_, err = globals.Stdout.Write(b)
	return err
}

// ConfigPathCmd prints the path of the config file
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]interface{}{
			"type": "config_path",
			"path": path,
		})
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}
