// Package resolver runs the external address-to-line tool and parses what it
// prints.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBinary is the addr2line build shipped with the ESP32 toolchain.
	DefaultBinary = "xtensa-esp32-elf-addr2line"
	// DefaultPlatform is passed after the format flags.
	DefaultPlatform = "ESP32"
	// DefaultTimeout bounds a single resolver invocation.
	DefaultTimeout = 5 * time.Second
)

var (
	ErrNoAddresses = errors.New("no addresses to resolve")
	ErrTimeout     = errors.New("resolver timed out")
)

// Resolver maps addresses to source text using a symbol artifact.
type Resolver interface {
	Resolve(ctx context.Context, artifact string, addrs ...string) (string, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, artifact string, addrs ...string) (string, error)

func (f Func) Resolve(ctx context.Context, artifact string, addrs ...string) (string, error) {
	return f(ctx, artifact, addrs...)
}

// BinaryPath picks the resolver binary once per session: an explicit path
// wins, otherwise the binary is looked up under the toolchain root.
func BinaryPath(explicit, toolsRoot string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(toolsRoot, "bin", DefaultBinary)
}

// Addr2Line invokes an addr2line compatible binary.
type Addr2Line struct {
	Binary   string
	Platform string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewAddr2Line creates an Addr2Line with default platform and timeout.
func NewAddr2Line(binary string, logger *zap.Logger) *Addr2Line {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Addr2Line{
		Binary:   binary,
		Platform: DefaultPlatform,
		Timeout:  DefaultTimeout,
		Logger:   logger,
	}
}

// Args builds the argument list for one invocation.
func (a *Addr2Line) Args(artifact string, addrs []string) []string {
	platform := a.Platform
	if platform == "" {
		platform = DefaultPlatform
	}
	args := []string{"-e", artifact, "-f", "-p", platform}
	return append(args, addrs...)
}

// Resolve runs the binary once with all addrs and returns its stdout. The
// captured output is returned even when the run fails; there is no retry.
func (a *Addr2Line) Resolve(ctx context.Context, artifact string, addrs ...string) (string, error) {
	if len(addrs) == 0 {
		return "", ErrNoAddresses
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.Binary, a.Args(artifact, addrs)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed resolver may leave children holding the pipes open.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	out := stdout.String()
	a.logger().Debug("resolver finished",
		zap.Strings("args", cmd.Args),
		zap.Duration("took", time.Since(start)),
		zap.Int("stdout_bytes", len(out)),
		zap.Error(err))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%w after %v: %q", ErrTimeout, timeout, cmd.Args)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return out, fmt.Errorf("failed to run %q: %w: %s", cmd.Args, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return out, fmt.Errorf("failed to run %q: %w", cmd.Args, err)
	}
	return out, nil
}

func (a *Addr2Line) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
