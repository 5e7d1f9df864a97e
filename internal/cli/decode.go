package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/vburojevic/espdecode/internal/output"
	"github.com/vburojevic/espdecode/internal/session"
)

// DecodeCmd decodes a trace given on the command line or a captured log
type DecodeCmd struct {
	Trace string `arg:"" optional:"" help:"Trace text, a path to a captured log, or '-' for stdin"`
	File  string `short:"f" help:"Captured log file to decode"`

	fs afero.Fs `kong:"-"`
}

// Run executes the decode command
func (c *DecodeCmd) Run(globals *Globals) error {
	if err := validateDecodeInput(globals, c.Trace, c.File); err != nil {
		return err
	}
	fs := c.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	text, source, err := c.input(globals, fs)
	if err != nil {
		return outputErrorCommon(globals, codeInputReadFailed, err.Error(), "check the file path")
	}

	w := globals.Writer()
	p, err := newPipeline(globals, fs, w)
	if err != nil {
		return err
	}

	if !globals.Quiet {
		ready := p.ready(globals, "decode")
		ready.Input = source
		w.WriteReady(ready)
	}

	sess := session.New(p.classifier, w, nil,
		session.WithLogger(p.logger),
		session.WithID(p.sessionID))
	if err := sess.Batch(context.Background(), text); err != nil {
		return outputErrorCommon(globals, codeOutputFailed, err.Error())
	}

	if !globals.Quiet {
		st := sess.Stats()
		w.WriteSummary(&output.Summary{
			SessionID: p.sessionID,
			Lines:     st.Lines,
			Events:    st.Events,
			Restarts:  st.Restarts,
			BootLoop:  st.Suppressed,
		})
	}
	return nil
}

// input returns the text to decode and a description of where it came from.
// A positional argument naming an existing file is read like --file.
func (c *DecodeCmd) input(globals *Globals, fs afero.Fs) (text, source string, err error) {
	switch {
	case c.File != "":
		return readFile(fs, c.File)
	case c.Trace == "-":
		b, err := io.ReadAll(globals.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), "stdin", nil
	}
	if info, err := fs.Stat(c.Trace); err == nil && !info.IsDir() {
		return readFile(fs, c.Trace)
	}
	return c.Trace, "argument", nil
}

func readFile(fs afero.Fs, path string) (string, string, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("log file %s does not exist", path)
		}
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), path, nil
}
