package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/espdecode/internal/domain"
	"github.com/vburojevic/espdecode/internal/fingerprint"
	"github.com/vburojevic/espdecode/internal/resolver"
)

const (
	testELF     = ".pio/build/esp32dev/firmware.elf"
	localDigest = fingerprint.Fingerprint("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
)

// fakeResolver answers from a table and records every call.
type fakeResolver struct {
	answers map[string]string
	failing map[string]bool
	calls   [][]string
}

func (f *fakeResolver) Resolve(_ context.Context, artifact string, addrs ...string) (string, error) {
	f.calls = append(f.calls, addrs)
	if artifact != testELF {
		return "", errors.New("unexpected artifact " + artifact)
	}
	if len(addrs) == 1 && f.failing[addrs[0]] {
		return "", errors.New("exit status 1")
	}
	if len(addrs) == 1 {
		return f.answers[addrs[0]], nil
	}
	return "", nil
}

func newTestClassifier(res resolver.Resolver) (*Classifier, *clock.Mock) {
	mock := clock.NewMock()
	return New(res, testELF, localDigest, WithClock(mock), WithSessionID("s1")), mock
}

func TestPanicReason(t *testing.T) {
	c, mock := newTestClassifier(&fakeResolver{})

	events, stop := c.Classify(context.Background(), "Guru Meditation Error: Core 0 panic'ed (LoadProhibited)")
	require.False(t, stop)

	want := []domain.Event{domain.NewPanicReason("s1", mock.Now(), "LoadProhibited")}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPanicReasonUsesLastClosingParen(t *testing.T) {
	c, _ := newTestClassifier(&fakeResolver{})

	events, _ := c.Classify(context.Background(), "Guru Meditation Error: Core 1 panic'ed ( Unhandled debug exception (break) ). \r")
	require.Len(t, events, 1)
	assert.Equal(t, "Unhandled debug exception (break)", events[0].(*domain.PanicReason).Reason)

	events, _ = c.Classify(context.Background(), "Guru Meditation Error without reason")
	assert.Empty(t, events)
}

func TestProgramCounterFault(t *testing.T) {
	res := &fakeResolver{answers: map[string]string{"0x400d1234": "mydir/main.cpp:42"}}
	c, mock := newTestClassifier(res)

	events, stop := c.Classify(context.Background(), "PC: 0x400d1234")
	require.False(t, stop)

	want := []domain.Event{domain.NewProgramCounterFault("s1", mock.Now(), "0x400d1234",
		domain.Location{Dir: "mydir", File: "main.cpp", Line: "42"})}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, [][]string{{"0x400d1234"}}, res.calls)
}

func TestProgramCounterFieldSplitting(t *testing.T) {
	res := &fakeResolver{answers: map[string]string{"0x400d1234": "src/app.c:7"}}
	c, _ := newTestClassifier(res)

	events, _ := c.Classify(context.Background(), "PC      :\t0x400d1234  PS      : 0x00060530\r")
	require.Len(t, events, 1)
	assert.Equal(t, "0x400d1234", events[0].(*domain.ProgramCounterFault).Address)

	events, _ = c.Classify(context.Background(), "PC:")
	assert.Empty(t, events)
}

func TestProgramCounterUnresolved(t *testing.T) {
	res := &fakeResolver{failing: map[string]bool{"0xdead": true}}
	c, _ := newTestClassifier(res)

	events, _ := c.Classify(context.Background(), "PC: 0xdead")
	assert.Empty(t, events)

	events, _ = c.Classify(context.Background(), "PC: 0xbeef")
	assert.Empty(t, events, "empty output must not produce a location")
}

func TestBacktracePreservesOrderAndIsolatesFailures(t *testing.T) {
	res := &fakeResolver{
		answers: map[string]string{
			"0x400d0001:0x3ffb0001": "a/one.c:1",
			"0x400d0003:0x3ffb0003": "c/three.c:3",
			"0x400d0004:0x3ffb0004": "",
		},
		failing: map[string]bool{"0x400d0002:0x3ffb0002": true},
	}
	c, mock := newTestClassifier(res)

	line := "Backtrace: 0x400d0001:0x3ffb0001 0x400d0002:0x3ffb0002  0x400d0003:0x3ffb0003 0x400d0004:0x3ffb0004"
	events, stop := c.Classify(context.Background(), line)
	require.False(t, stop)

	addrs := []string{"0x400d0001:0x3ffb0001", "0x400d0002:0x3ffb0002", "0x400d0003:0x3ffb0003", "0x400d0004:0x3ffb0004"}
	want := []domain.Event{domain.NewBacktrace("s1", mock.Now(), addrs, []domain.Location{
		{Dir: "a", File: "one.c", Line: "1"},
		{Dir: "c", File: "three.c", Line: "3"},
	})}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	// One call per address, in device order.
	require.Len(t, res.calls, 4)
	for i, call := range res.calls {
		assert.Equal(t, []string{addrs[i]}, call)
	}
}

func TestUnmatchedLinesProduceNothing(t *testing.T) {
	c, _ := newTestClassifier(&fakeResolver{})

	for _, line := range []string{"", "rst:0x1 (POWERON_RESET),boot:0x13", "I (31) boot: ESP-IDF v4.4"} {
		events, stop := c.Classify(context.Background(), line)
		assert.Empty(t, events, "%q", line)
		assert.False(t, stop)
	}
	assert.Equal(t, State{}, c.State())
}

func TestCrashHeaderMismatch(t *testing.T) {
	c, mock := newTestClassifier(&fakeResolver{})

	events, stop := c.Classify(context.Background(), "ELF file SHA256: 0123456789abcdef\r")
	require.True(t, stop)

	want := []domain.Event{
		domain.NewCrashHeader("s1", mock.Now(), "0123456789abcdef", localDigest.String()),
		domain.NewBootLoopDetected("s1", mock.Now(), 1),
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, State{RestartCount: 1, Suppressed: true}, c.State())
}

func TestConsecutiveMatchingCrashHeaders(t *testing.T) {
	c, mock := newTestClassifier(&fakeResolver{})
	header := "ELF file SHA256: " + localDigest.Short()

	events, stop := c.Classify(context.Background(), header)
	require.True(t, stop)
	if diff := cmp.Diff([]domain.Event{domain.NewBootLoopDetected("s1", mock.Now(), 1)}, events); diff != "" {
		t.Fatalf("first header (-want +got):\n%s", diff)
	}

	events, stop = c.Classify(context.Background(), header)
	require.True(t, stop)
	if diff := cmp.Diff([]domain.Event{domain.NewBootLoopDetected("s1", mock.Now(), 2)}, events); diff != "" {
		t.Fatalf("second header (-want +got):\n%s", diff)
	}
	assert.Equal(t, State{RestartCount: 2, Suppressed: true}, c.State())
}

func TestSuppressedSessionIgnoresEverything(t *testing.T) {
	res := &fakeResolver{answers: map[string]string{"0x1": "d/f.c:1"}}
	c, _ := newTestClassifier(res)

	_, stop := c.Classify(context.Background(), "ELF file SHA256: "+localDigest.Short())
	require.True(t, stop)
	require.True(t, c.Suppressed())

	for _, line := range []string{
		"PC: 0x1",
		"Guru Meditation Error: Core 0 panic'ed (IllegalInstruction)",
		"Backtrace: 0x1",
		"anything else",
	} {
		events, stop := c.Classify(context.Background(), line)
		assert.Empty(t, events, "%q", line)
		assert.True(t, stop)
	}
	assert.Empty(t, res.calls)
	assert.True(t, c.Suppressed())

	// A mismatching header is not reported once suppressed.
	events, _ := c.Classify(context.Background(), "ELF file SHA256: ffffffffffffffff")
	require.Len(t, events, 1)
	assert.Equal(t, domain.TypeBootLoopDetected, events[0].EventType())
}
