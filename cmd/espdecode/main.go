package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/espdecode/internal/cli"
	"github.com/vburojevic/espdecode/internal/config"
)

const quickStart = `espdecode - ESP32 exception decoder for serial monitors and crash logs

Quick start:
  espdecode ports                           List serial ports
  espdecode monitor -p /dev/ttyUSB0         Decode crashes live
  espdecode decode -f crash.log             Decode a captured log
  espdecode --format ndjson decode -        Decode stdin as NDJSON

For help:
  espdecode --help                          All commands and flags
  espdecode schema                          JSON Schema of the ndjson records
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win.
	vars := kong.Vars{
		"config_format":    cfg.Format,
		"config_build":     cfg.Build,
		"config_elf":       cfg.ELF,
		"config_tools":     cfg.Tools,
		"config_addr2line": cfg.Addr2Line,
		"config_platform":  cfg.Platform,
		"config_timeout":   cfg.ResolveTimeout,
		"config_port":      cfg.Monitor.Port,
		"config_speed":     strconv.Itoa(cfg.Monitor.Speed),
	}

	ctx := kong.Parse(&c,
		kong.Name("espdecode"),
		kong.Description("Decode ESP32 Guru Meditation errors and backtraces with addr2line"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}
