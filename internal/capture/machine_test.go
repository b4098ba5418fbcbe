package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/govoicekey/internal/audio"
	"github.com/chaz8081/govoicekey/internal/hotkey"
)

type fakeSession struct {
	rec    audio.Capture
	closed int
}

func (s *fakeSession) Close() audio.Capture {
	s.closed++
	return s.rec
}

type fakeOpener struct {
	session *fakeSession
	err     error
	opens   int
}

func (o *fakeOpener) open() (Session, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Process(samples []float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeInjector struct {
	texts []string
	err   error
}

func (f *fakeInjector) Inject(text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

// makeCapture builds a mono 16 kHz recording of the given length.
func makeCapture(ms int) audio.Capture {
	return audio.Capture{
		Samples:   make([]float32, 16000*ms/1000),
		Rate:      16000,
		Channels:  1,
		StartedAt: time.Now(),
	}
}

type testRig struct {
	machine     *Machine
	opener      *fakeOpener
	transcriber *fakeTranscriber
	injector    *fakeInjector
	notices     []string
}

func newTestRig(t *testing.T, rec audio.Capture) *testRig {
	t.Helper()
	rig := &testRig{
		opener:      &fakeOpener{session: &fakeSession{rec: rec}},
		transcriber: &fakeTranscriber{text: "hello world"},
		injector:    &fakeInjector{},
	}
	rig.machine = New(rig.opener.open, rig.transcriber, rig.injector, Options{
		MinDuration: 300 * time.Millisecond,
		TargetRate:  16000,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notify:      func(msg string) { rig.notices = append(rig.notices, msg) },
	})
	return rig
}

func (r *testRig) press() {
	r.machine.handleKey(hotkey.KeyEvent{Kind: hotkey.Pressed, Time: time.Now()})
}

func (r *testRig) release() {
	r.machine.handleKey(hotkey.KeyEvent{Kind: hotkey.Released, Time: time.Now()})
}

// waitJob receives the transcription result posted by the worker.
func (r *testRig) waitJob(t *testing.T) jobResult {
	t.Helper()
	select {
	case msg := <-r.machine.inbox:
		if msg.job == nil {
			t.Fatal("inbox message is not a job result")
		}
		return *msg.job
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcription job")
		return jobResult{}
	}
}

func (r *testRig) assertNoJob(t *testing.T) {
	t.Helper()
	select {
	case msg := <-r.machine.inbox:
		if msg.job != nil {
			t.Fatal("unexpected transcription job submitted")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMachineFullCycle(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))

	rig.press()
	if got := rig.machine.State(); got != StateRecording {
		t.Fatalf("state after press = %v, want %v", got, StateRecording)
	}

	rig.release()
	if got := rig.machine.State(); got != StateTranscribing {
		t.Fatalf("state after release = %v, want %v", got, StateTranscribing)
	}

	rig.machine.handleJob(rig.waitJob(t))
	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state after job = %v, want %v", got, StateIdle)
	}

	if got := rig.transcriber.callCount(); got != 1 {
		t.Errorf("transcriber calls = %d, want 1", got)
	}
	if len(rig.injector.texts) != 1 || rig.injector.texts[0] != "hello world" {
		t.Errorf("injected = %q, want [hello world]", rig.injector.texts)
	}
	if len(rig.notices) != 0 {
		t.Errorf("notices = %q, want none", rig.notices)
	}
}

func TestMachineShortCaptureSkipsTranscription(t *testing.T) {
	rig := newTestRig(t, makeCapture(50))

	rig.press()
	rig.release()

	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}
	rig.assertNoJob(t)
	if got := rig.transcriber.callCount(); got != 0 {
		t.Errorf("transcriber calls = %d, want 0", got)
	}
}

func TestMachineEmptyCaptureNeverSubmitsJob(t *testing.T) {
	rig := newTestRig(t, audio.Capture{Rate: 16000, Channels: 1})

	rig.press()
	rig.release()

	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}
	rig.assertNoJob(t)
}

func TestMachineDeviceOpenFailureRetries(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))
	rig.opener.err = audio.ErrDeviceUnavailable

	rig.press()
	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}
	if len(rig.notices) != 1 {
		t.Fatalf("notices = %q, want exactly one", rig.notices)
	}

	// The next press must attempt the device again.
	rig.opener.err = nil
	rig.press()
	if got := rig.machine.State(); got != StateRecording {
		t.Fatalf("state after retry = %v, want %v", got, StateRecording)
	}
	if rig.opener.opens != 2 {
		t.Errorf("opens = %d, want 2", rig.opener.opens)
	}
}

func TestMachineTranscriptionFailure(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))
	rig.transcriber.err = errors.New("engine exploded")

	rig.press()
	rig.release()
	rig.machine.handleJob(rig.waitJob(t))

	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}
	if len(rig.injector.texts) != 0 {
		t.Errorf("injected = %q, want none", rig.injector.texts)
	}
	if len(rig.notices) != 1 {
		t.Errorf("notices = %q, want exactly one", rig.notices)
	}
}

func TestMachineInjectionFailureIsNonFatal(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))
	rig.injector.err = errors.New("no accessibility permission")

	rig.press()
	rig.release()
	rig.machine.handleJob(rig.waitJob(t))

	if got := rig.machine.State(); got != StateIdle {
		t.Fatalf("state = %v, want %v", got, StateIdle)
	}
	if len(rig.notices) != 1 {
		t.Errorf("notices = %q, want exactly one", rig.notices)
	}
}

func TestMachineEmptyTranscriptNotInjected(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))
	rig.transcriber.text = ""

	rig.press()
	rig.release()
	rig.machine.handleJob(rig.waitJob(t))

	if len(rig.injector.texts) != 0 {
		t.Errorf("injected = %q, want none", rig.injector.texts)
	}
	if len(rig.notices) != 0 {
		t.Errorf("notices = %q, want none", rig.notices)
	}
}

func TestMachineRepeatPressWhileRecordingIgnored(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))

	rig.press()
	rig.press()
	rig.press()

	if rig.opener.opens != 1 {
		t.Errorf("opens = %d, want 1", rig.opener.opens)
	}
	if got := rig.machine.State(); got != StateRecording {
		t.Errorf("state = %v, want %v", got, StateRecording)
	}
}

func TestMachineReleaseWhileIdleIsNoOp(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))

	rig.release()

	if got := rig.machine.State(); got != StateIdle {
		t.Errorf("state = %v, want %v", got, StateIdle)
	}
	rig.assertNoJob(t)
}

func TestMachineSingleJobInFlight(t *testing.T) {
	rig := newTestRig(t, makeCapture(500))

	rig.press()
	rig.release()

	// Key mashing while transcribing must not open a second session or
	// submit a second job.
	rig.press()
	rig.release()
	rig.press()

	if got := rig.machine.State(); got != StateTranscribing {
		t.Fatalf("state = %v, want %v", got, StateTranscribing)
	}
	if rig.opener.opens != 1 {
		t.Errorf("opens = %d, want 1", rig.opener.opens)
	}

	rig.machine.handleJob(rig.waitJob(t))
	rig.assertNoJob(t)
	if got := rig.transcriber.callCount(); got != 1 {
		t.Errorf("transcriber calls = %d, want 1", got)
	}
}

func TestMachineRunEndToEnd(t *testing.T) {
	injected := make(chan string, 1)
	opener := &fakeOpener{session: &fakeSession{rec: makeCapture(500)}}
	machine := New(opener.open, &fakeTranscriber{text: "dictated text"}, injectFunc(func(text string) error {
		injected <- text
		return nil
	}), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan hotkey.KeyEvent)
	done := make(chan struct{})
	go func() {
		machine.Run(ctx, events)
		close(done)
	}()

	events <- hotkey.KeyEvent{Kind: hotkey.Pressed, Time: time.Now()}
	events <- hotkey.KeyEvent{Kind: hotkey.Released, Time: time.Now()}

	select {
	case text := <-injected:
		if text != "dictated text" {
			t.Errorf("injected = %q, want %q", text, "dictated text")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for injection")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

type injectFunc func(text string) error

func (f injectFunc) Inject(text string) error { return f(text) }

func TestMachineRunReturnsWhenEventsClose(t *testing.T) {
	session := &fakeSession{rec: makeCapture(500)}
	opener := &fakeOpener{session: session}
	machine := New(opener.open, &fakeTranscriber{}, &fakeInjector{}, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	events := make(chan hotkey.KeyEvent, 1)
	done := make(chan struct{})
	go func() {
		machine.Run(context.Background(), events)
		close(done)
	}()

	// Start a recording, then kill the event source mid-capture: the
	// machine must release the device and stop instead of parking
	// forever on an inbox no one feeds.
	events <- hotkey.KeyEvent{Kind: hotkey.Pressed, Time: time.Now()}
	close(events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events channel closed")
	}
	if session.closed != 1 {
		t.Errorf("session closed %d times, want 1", session.closed)
	}
	if got := machine.State(); got != StateIdle {
		t.Errorf("state = %v, want %v", got, StateIdle)
	}
}

func TestMachineShutdownClosesOpenSession(t *testing.T) {
	session := &fakeSession{rec: makeCapture(500)}
	rig := newTestRig(t, audio.Capture{})
	rig.opener.session = session

	rig.press()
	rig.machine.shutdown()

	if session.closed != 1 {
		t.Errorf("session closed %d times, want 1", session.closed)
	}
	if got := rig.machine.State(); got != StateIdle {
		t.Errorf("state = %v, want %v", got, StateIdle)
	}
}
