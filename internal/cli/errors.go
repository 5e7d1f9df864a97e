package cli

import (
	"errors"

	"github.com/vburojevic/espdecode/internal/output"
)

// Error codes reported for fatal setup problems.
const (
	codeELFNotFound     = "ELF_NOT_FOUND"
	codeNoPort          = "NO_PORT"
	codePortOpenFailed  = "PORT_OPEN_FAILED"
	codeDeviceRead      = "DEVICE_READ_FAILED"
	codeInputReadFailed = "INPUT_READ_FAILED"
	codeInvalidFlags    = "INVALID_FLAGS"
	codeOutputFailed    = "OUTPUT_FAILED"
)

// outputErrorCommon normalizes error emission across commands: ndjson errors
// go to stdout as records, text errors to stderr.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		output.NewTextWriter(globals.Stderr, false).WriteError(code, message, hint...)
	}
	return errors.New(message)
}
