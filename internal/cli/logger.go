package cli

import "go.uber.org/zap"

// newSessionLogger builds the verbose debug logger, tagged with the session
// id. Without --verbose it discards everything.
func newSessionLogger(globals *Globals, sessionID string) *zap.Logger {
	if globals == nil || !globals.Verbose {
		return zap.NewNop()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", sessionID))
	globals.logger = logger
	return logger
}
