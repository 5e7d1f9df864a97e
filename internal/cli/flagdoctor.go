package cli

// validateDecodeInput checks that exactly one decode input was given.
func validateDecodeInput(globals *Globals, trace, file string) error {
	if trace != "" && file != "" {
		return outputErrorCommon(globals, codeInvalidFlags, "a trace argument cannot be combined with --file", "pass either the trace text or --file")
	}
	if trace == "" && file == "" {
		return outputErrorCommon(globals, codeInvalidFlags, "nothing to decode", "pass the trace text, a log file path, '-' for stdin or --file")
	}
	return nil
}

// validateSpeed rejects baud rates the serial driver cannot use.
func validateSpeed(globals *Globals, speed int) error {
	if speed <= 0 {
		return outputErrorCommon(globals, codeInvalidFlags, "--speed must be a positive baud rate", "common values are 115200 and 250000")
	}
	return nil
}
