package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/vburojevic/espdecode/internal/session"
	"github.com/vburojevic/espdecode/internal/transport"
)

// MonitorCmd streams a serial port and decodes crashes as they arrive
type MonitorCmd struct {
	Port    string `short:"p" default:"${config_port}" help:"Serial port (default: last enumerated port)"`
	Speed   int    `short:"s" default:"${config_speed}" help:"Baud rate"`
	NoInput bool   `help:"Do not forward stdin lines to the device"`
}

// Run executes the monitor command
func (c *MonitorCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := validateSpeed(globals, c.Speed); err != nil {
		return err
	}

	w := globals.Writer()
	p, err := newPipeline(globals, afero.NewOsFs(), w)
	if err != nil {
		return err
	}

	port := c.Port
	if port == "" {
		port, err = transport.DefaultPort()
		if err != nil {
			return outputErrorCommon(globals, codeNoPort, err.Error(), "connect the board or pass --port")
		}
	}

	if !globals.Quiet {
		ready := p.ready(globals, "monitor")
		ready.Port = port
		ready.Baud = c.Speed
		w.WriteReady(ready)
	}

	globals.Debug("opening %s @ %d", port, c.Speed)
	sp, err := transport.OpenSerial(port, c.Speed)
	if err != nil {
		return outputErrorCommon(globals, codePortOpenFailed,
			fmt.Sprintf("could not open the serial port: %v", err),
			"check the port name, permissions and that no other monitor is attached")
	}
	defer sp.Close()
	globals.Debug("opened %s", sp)

	// Raw device output goes to stderr in ndjson mode so stdout stays parseable.
	var echo io.Writer = globals.Stdout
	if globals.Format == "ndjson" {
		echo = globals.Stderr
	}
	var operator io.Reader = globals.Stdin
	if c.NoInput {
		operator = nil
	}

	sess := session.New(p.classifier, w, echo,
		session.WithLogger(p.logger),
		session.WithID(p.sessionID))

	if err := sess.Stream(ctx, sp, operator); err != nil {
		return outputErrorCommon(globals, codeDeviceRead, err.Error(), "the board may have been disconnected")
	}
	return nil
}
