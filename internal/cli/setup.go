package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/vburojevic/espdecode/internal/artifact"
	"github.com/vburojevic/espdecode/internal/classifier"
	"github.com/vburojevic/espdecode/internal/fingerprint"
	"github.com/vburojevic/espdecode/internal/output"
	"github.com/vburojevic/espdecode/internal/resolver"
)

// pipeline is everything a decode session needs, resolved once at startup.
type pipeline struct {
	sessionID  string
	elf        string
	local      fingerprint.Fingerprint
	resolver   string
	classifier *classifier.Classifier
	logger     *zap.Logger
}

// newPipeline locates and fingerprints the ELF and picks the resolver
// binary. A missing ELF is fatal; a missing resolver only produces a warning
// since every address will then simply stay unresolved.
func newPipeline(globals *Globals, fs afero.Fs, w output.Writer) (*pipeline, error) {
	sessionID := uuid.NewString()
	logger := newSessionLogger(globals, sessionID)

	build := globals.Build
	if build == "" {
		latest, err := artifact.LatestBuild(fs, artifact.BuildDir)
		if err != nil {
			logger.Debug("build discovery failed", zap.Error(err))
		}
		build = latest
	}
	elf := artifact.ELFPath(globals.ELF, build)
	globals.Debug("using build %q, ELF %s", build, elf)

	local, err := fingerprint.Compute(fs, elf)
	if err != nil {
		return nil, outputErrorCommon(globals, codeELFNotFound,
			fmt.Sprintf("could not find the ELF file %s: %v", elf, err),
			"check the path with --elf and --build")
	}

	timeout, err := time.ParseDuration(globals.ResolveTimeout)
	if err != nil || timeout <= 0 {
		timeout = resolver.DefaultTimeout
	}

	bin := resolver.BinaryPath(globals.Addr2Line, globals.Tools)
	if _, err := os.Stat(bin); err != nil && !globals.Quiet {
		w.WriteWarning(fmt.Sprintf("addr2line not found at %s, addresses will not be decoded", bin))
	}

	res := resolver.NewAddr2Line(bin, logger)
	res.Timeout = timeout
	if globals.Platform != "" {
		res.Platform = globals.Platform
	}

	cls := classifier.New(res, elf, local,
		classifier.WithLogger(logger),
		classifier.WithSessionID(sessionID))

	return &pipeline{
		sessionID:  sessionID,
		elf:        elf,
		local:      local,
		resolver:   bin,
		classifier: cls,
		logger:     logger,
	}, nil
}

func (p *pipeline) ready(globals *Globals, mode string) *output.Ready {
	return &output.Ready{
		SessionID: p.sessionID,
		Mode:      mode,
		ELF:       p.elf,
		SHA256:    p.local.String(),
		Tools:     globals.Tools,
		Resolver:  p.resolver,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
