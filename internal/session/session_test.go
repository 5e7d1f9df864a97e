package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vburojevic/espdecode/internal/classifier"
	"github.com/vburojevic/espdecode/internal/domain"
	"github.com/vburojevic/espdecode/internal/fingerprint"
	"github.com/vburojevic/espdecode/internal/resolver"
)

const localDigest = fingerprint.Fingerprint("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")

const crashLog = "rst:0x1 (POWERON_RESET),boot:0x13 (SPI_FAST_FLASH_BOOT)\r\n" +
	"Guru Meditation Error: Core  0 panic'ed (LoadProhibited). Exception was unhandled.\r\n" +
	"PC      : 0x400d1234  PS      : 0x00060530  A0      : 0x800d5678\r\n" +
	"\r\n" +
	"Backtrace: 0x400d1234:0x3ffb1f50 0x400d5678:0x3ffb1f70 0x400d9abc:0x3ffb1f90\r\n" +
	"\r\n" +
	"ELF file SHA256: e3b0c44298fc1c14\r\n" +
	"\r\n" +
	"Rebooting...\r\n" +
	"PC: 0x400d1234\r\n"

var table = map[string]string{
	"0x400d1234":            "main/app.cpp:42",
	"0x400d1234:0x3ffb1f50": "main/app.cpp:42",
	"0x400d5678:0x3ffb1f70": "",
	"0x400d9abc:0x3ffb1f90": "??:0\n/esp-idf/components/freertos/port.c:143",
}

func newClassifier() *classifier.Classifier {
	res := resolver.Func(func(_ context.Context, _ string, addrs ...string) (string, error) {
		return table[addrs[0]], nil
	})
	return classifier.New(res, "firmware.elf", localDigest)
}

// recorder is a Sink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) WriteEvent(ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.EventType())
	}
	return types
}

// pipeTransport reads device output from a pipe and records operator writes.
type pipeTransport struct {
	*io.PipeReader
	mu      sync.Mutex
	written bytes.Buffer
}

func (p *pipeTransport) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *pipeTransport) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestBatchDecodesCrashLog(t *testing.T) {
	rec := &recorder{}
	s := New(newClassifier(), rec, nil)

	require.NoError(t, s.Batch(context.Background(), crashLog))

	assert.Equal(t, []string{
		domain.TypePanicReason,
		domain.TypeProgramCounter,
		domain.TypeBacktrace,
		domain.TypeBootLoopDetected,
	}, rec.Types())

	bt := rec.events[2].(*domain.Backtrace)
	assert.Len(t, bt.Addresses, 3)
	assert.Equal(t, []domain.Location{
		{Dir: "main", File: "app.cpp", Line: "42"},
		{Dir: "/esp-idf/components/freertos", File: "port.c", Line: "143"},
	}, bt.Frames)

	st := s.Stats()
	assert.Equal(t, 10, st.Lines)
	assert.Equal(t, 4, st.Events)
	assert.Equal(t, 1, st.Restarts)
	assert.True(t, st.Suppressed)
}

func TestBatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(newClassifier(), &recorder{}, nil).Batch(ctx, crashLog)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatchReportsSinkErrors(t *testing.T) {
	sink := SinkFunc(func(domain.Event) error { return errors.New("stdout closed") })

	err := New(newClassifier(), sink, nil).Batch(context.Background(), crashLog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdout closed")
}

func TestFeedEchoStopsAfterBootLoop(t *testing.T) {
	var echo bytes.Buffer
	rec := &recorder{}
	s := New(newClassifier(), rec, &echo)

	// Chunked arbitrarily across the crash log.
	data := []byte(crashLog)
	for len(data) > 0 {
		n := min(7, len(data))
		require.NoError(t, s.Feed(context.Background(), data[:n]))
		data = data[n:]
	}

	out := echo.String()
	assert.True(t, strings.HasPrefix(crashLog, out))
	assert.True(t, strings.HasSuffix(out, "ELF file SHA256: e3b0c44298fc1c14\r"))
	assert.NotContains(t, out, "Rebooting")
	assert.Equal(t, 4, len(rec.Types()))
}

func TestFeedIsSerialised(t *testing.T) {
	rec := &recorder{}
	s := New(newClassifier(), rec, io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Feed(context.Background(), []byte("I (31) boot: line\n"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, s.Stats().Lines)
	assert.Empty(t, rec.Types())
}

func TestStreamDecodesForwardsAndStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	tr := &pipeTransport{PipeReader: pr}
	rec := &recorder{}
	var echo bytes.Buffer
	s := New(newClassifier(), rec, &echo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Stream(ctx, tr, strings.NewReader("help\nrestart\n")) }()

	_, err := pw.Write([]byte("Guru Meditation Error: Core 0 panic'ed (LoadProh"))
	require.NoError(t, err)
	_, err = pw.Write([]byte("ibited)\r\nPC: 0x400d1234\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.Types()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return tr.Written() == "help\nrestart\n" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}

	assert.Equal(t, []string{domain.TypePanicReason, domain.TypeProgramCounter}, rec.Types())
	assert.Contains(t, echo.String(), "PC: 0x400d1234")
}

func TestStreamEndsOnEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := struct {
		io.Reader
		io.Writer
	}{strings.NewReader(crashLog), io.Discard}
	rec := &recorder{}

	require.NoError(t, New(newClassifier(), rec, nil).Stream(context.Background(), tr, nil))
	assert.Len(t, rec.Types(), 4)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device disconnected") }

func TestStreamReportsReadErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	tr := struct {
		io.Reader
		io.Writer
	}{failingReader{}, io.Discard}

	err := New(newClassifier(), &recorder{}, nil).Stream(context.Background(), tr, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device disconnected")
}
