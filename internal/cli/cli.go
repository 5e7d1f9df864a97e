package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/vburojevic/espdecode/internal/config"
	"github.com/vburojevic/espdecode/internal/output"
)

// Set by the release build.
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the root command model
type CLI struct {
	Format  string `enum:"text,ndjson" default:"${config_format}" help:"Output format (text or ndjson)"`
	Quiet   bool   `short:"q" help:"Suppress banner and summary output"`
	Verbose bool   `short:"v" help:"Log debug information as JSON to stderr"`
	NoColor bool   `help:"Disable colored output"`

	Build          string `short:"b" default:"${config_build}" help:"PlatformIO build environment (default: most recent under .pio/build)"`
	ELF            string `short:"e" name:"elf" default:"${config_elf}" help:"ELF path template, {build} is replaced by the build name"`
	Tools          string `short:"t" default:"${config_tools}" help:"Root of the xtensa toolchain"`
	Addr2Line      string `short:"a" name:"addr2line" default:"${config_addr2line}" help:"Path to addr2line (default: <tools>/bin/xtensa-esp32-elf-addr2line)"`
	Platform       string `default:"${config_platform}" help:"Platform name passed to addr2line"`
	ResolveTimeout string `default:"${config_timeout}" help:"Timeout for a single addr2line run"`

	Monitor MonitorCmd `cmd:"" help:"Monitor a serial port and decode crashes as they happen"`
	Decode  DecodeCmd  `cmd:"" help:"Decode a captured trace or log file"`
	Ports   PortsCmd   `cmd:"" help:"List serial ports"`
	Config  ConfigCmd  `cmd:"" help:"Show configuration"`
	Schema  SchemaCmd  `cmd:"" help:"Print JSON schema of the ndjson records"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

// Globals carries the global flags and I/O handles into every command
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	NoColor bool

	Build          string
	ELF            string
	Tools          string
	Addr2Line      string
	Platform       string
	ResolveTimeout string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Config *config.Config

	logger *zap.Logger
}

// NewGlobalsWithConfig builds Globals from parsed flags, falling back to cfg
// for anything left empty.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:         firstNonEmpty(c.Format, cfg.Format),
		Quiet:          c.Quiet || cfg.Quiet,
		Verbose:        c.Verbose || cfg.Verbose,
		NoColor:        c.NoColor || cfg.NoColor,
		Build:          firstNonEmpty(c.Build, cfg.Build),
		ELF:            firstNonEmpty(c.ELF, cfg.ELF),
		Tools:          firstNonEmpty(c.Tools, cfg.Tools),
		Addr2Line:      firstNonEmpty(c.Addr2Line, cfg.Addr2Line),
		Platform:       firstNonEmpty(c.Platform, cfg.Platform),
		ResolveTimeout: firstNonEmpty(c.ResolveTimeout, cfg.ResolveTimeout),
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Stdin:          os.Stdin,
		Config:         cfg,
	}
	return g
}

// Writer returns the event writer for the selected format.
func (g *Globals) Writer() output.Writer {
	if g.Format == "ndjson" {
		return output.NewNDJSONWriter(g.Stdout)
	}
	return output.NewTextWriter(g.Stdout, g.colorEnabled())
}

func (g *Globals) colorEnabled() bool {
	if g.NoColor {
		return false
	}
	f, ok := g.Stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Debug logs through the verbose logger, if any.
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.logger == nil {
		return
	}
	g.logger.Sugar().Debugf(format, args...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
