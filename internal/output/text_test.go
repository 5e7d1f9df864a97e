package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/espdecode/internal/domain"
)

func TestTextWriterEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)
	now := time.Now()

	require.NoError(t, w.WriteEvent(domain.NewPanicReason("", now, "LoadProhibited")))
	require.NoError(t, w.WriteEvent(domain.NewProgramCounterFault("", now, "0x400d1234",
		domain.Location{Dir: "mydir", File: "main.cpp", Line: "42"})))
	require.NoError(t, w.WriteEvent(domain.NewBacktrace("", now, []string{"0x1", "0x2"}, []domain.Location{
		{Dir: "a", File: "one.c", Line: "1"},
		{File: "two.c", Line: "2"},
	})))
	require.NoError(t, w.WriteEvent(domain.NewBootLoopDetected("", now, 1)))
	require.NoError(t, w.WriteEvent(domain.NewBootLoopDetected("", now, 2)))

	assert.Equal(t,
		"\nLoadProhibited\n"+
			"\nException occurred at: \nmydir/main.cpp:42\n"+
			"\nDecoded Backtrace: \na/one.c:1\ntwo.c:2\n"+
			"\n\rBoot loop detected: 1"+
			"\rBoot loop detected: 2",
		buf.String())
}

func TestTextWriterCrashHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)

	require.NoError(t, w.WriteEvent(domain.NewCrashHeader("", time.Now(), "0123456789abcdef", "e3b0c442")))
	assert.Contains(t, buf.String(), "Are you sure you are running the latest firmware?")
	assert.Contains(t, buf.String(), "device: 0123456789abcdef")
}

func TestTextWriterReadyAndError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)

	require.NoError(t, w.WriteReady(&Ready{Mode: "monitor", ELF: "fw.elf", SHA256: "abc", Port: "/dev/ttyUSB0", Baud: 250000}))
	require.NoError(t, w.WriteError("PORT_OPEN_FAILED", "could not open the port", "check cable"))

	out := buf.String()
	assert.Contains(t, out, "Using ELF: fw.elf\n")
	assert.Contains(t, out, "Port: /dev/ttyUSB0 @250000\n")
	assert.Contains(t, out, "Error [PORT_OPEN_FAILED]: could not open the port (hint: check cable)\n")
}
