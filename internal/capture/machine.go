package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaz8081/govoicekey/internal/audio"
	"github.com/chaz8081/govoicekey/internal/hotkey"
)

// Session is one open recording. Close stops the stream and returns
// ownership of the accumulated buffer; it is valid even when zero
// frames arrived.
type Session interface {
	Close() audio.Capture
}

// OpenFunc opens a capture session on the default input device. It is
// called on every accepted press so a device that was missing earlier
// can still be picked up later.
type OpenFunc func() (Session, error)

// Transcriber converts 16 kHz mono samples to text.
type Transcriber interface {
	Process(samples []float32) (string, error)
}

// Injector delivers text to the focused application.
type Injector interface {
	Inject(text string) error
}

// Options tunes the machine.
type Options struct {
	// MinDuration is the shortest capture worth transcribing.
	// Accidental taps below it skip the pipeline entirely.
	MinDuration time.Duration
	// TargetRate is the sample rate the transcriber expects.
	TargetRate int
	// DumpDir, when set, writes each transcribed capture as a WAV
	// file for debugging.
	DumpDir string
	Logger  *slog.Logger
	// Notify surfaces recoverable errors to the user.
	Notify func(message string)
}

type jobResult struct {
	text    string
	err     error
	elapsed time.Duration
}

// message keeps key events and job completions in one ordered stream.
// eof marks the end of the key-event source.
type message struct {
	key *hotkey.KeyEvent
	job *jobResult
	eof bool
}

// Machine runs the push-to-talk cycle: press opens a session, release
// closes it and submits transcription, completion injects the text.
// All state lives on the Run goroutine.
type Machine struct {
	open        OpenFunc
	transcriber Transcriber
	injector    Injector
	opts        Options

	state   State
	session Session
	inbox   chan message
}

// New assembles a machine. open, transcriber, and injector must be
// non-nil.
func New(open OpenFunc, transcriber Transcriber, injector Injector, opts Options) *Machine {
	if opts.MinDuration <= 0 {
		opts.MinDuration = 300 * time.Millisecond
	}
	if opts.TargetRate <= 0 {
		opts.TargetRate = 16000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	return &Machine{
		open:        open,
		transcriber: transcriber,
		injector:    injector,
		opts:        opts,
		state:       StateIdle,
		inbox:       make(chan message, 16),
	}
}

// State reports the current phase. Only safe from the Run goroutine or
// while Run is not executing.
func (m *Machine) State() State { return m.state }

// Run consumes key events until ctx is cancelled or events closes. A
// closed events channel means the hotkey hook died; Run discards any
// open session and returns so the caller can treat it as fatal. It
// blocks; call it from a dedicated goroutine.
func (m *Machine) Run(ctx context.Context, events <-chan hotkey.KeyEvent) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					select {
					case m.inbox <- message{eof: true}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case m.inbox <- message{key: &ev}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case msg := <-m.inbox:
			if msg.eof {
				m.opts.Logger.Error("key event source closed")
				m.shutdown()
				return
			}
			if msg.key != nil {
				m.handleKey(*msg.key)
			} else if msg.job != nil {
				m.handleJob(*msg.job)
			}
		}
	}
}

func (m *Machine) handleKey(ev hotkey.KeyEvent) {
	switch ev.Kind {
	case hotkey.Pressed:
		m.handlePressed()
	case hotkey.Released:
		m.handleReleased()
	}
}

func (m *Machine) handlePressed() {
	next, err := Transition(m.state, EventPressed)
	if err != nil {
		m.opts.Logger.Debug("ignoring press", "state", m.state)
		return
	}

	session, openErr := m.open()
	if openErr != nil {
		// Stay Idle; the next press retries the device.
		m.opts.Logger.Error("opening capture device", "error", openErr)
		m.opts.Notify("microphone unavailable")
		return
	}

	m.session = session
	m.state = next
	m.opts.Logger.Info("recording started")
}

func (m *Machine) handleReleased() {
	if _, err := Transition(m.state, EventReleased); err != nil {
		m.opts.Logger.Debug("ignoring release", "state", m.state)
		return
	}

	rec := m.session.Close()
	m.session = nil

	if rec.Overruns > 0 {
		m.opts.Logger.Warn("capture reported overruns", "count", rec.Overruns)
	}

	dur := rec.Duration()
	if len(rec.Samples) == 0 || dur < m.opts.MinDuration {
		m.state, _ = Transition(m.state, EventDiscard)
		m.opts.Logger.Debug("capture too short, skipping", "duration", dur)
		return
	}

	samples, err := audio.Resample(rec.Samples, rec.Rate, rec.Channels, m.opts.TargetRate)
	if err != nil {
		m.state, _ = Transition(m.state, EventDiscard)
		m.opts.Logger.Error("resampling capture", "error", err)
		return
	}

	if m.opts.DumpDir != "" {
		if path, err := audio.DumpWAV(m.opts.DumpDir, samples, m.opts.TargetRate, rec.StartedAt); err != nil {
			m.opts.Logger.Warn("dumping capture", "error", err)
		} else {
			m.opts.Logger.Debug("capture dumped", "path", path)
		}
	}

	m.state, _ = Transition(m.state, EventReleased)
	m.opts.Logger.Info("recording stopped", "duration", dur)
	m.submit(samples)
}

// submit runs the blocking transcription call off the event path and
// posts the result back into the inbox.
func (m *Machine) submit(samples []float32) {
	go func() {
		start := time.Now()
		text, err := m.transcriber.Process(samples)
		m.inbox <- message{job: &jobResult{text: text, err: err, elapsed: time.Since(start)}}
	}()
}

func (m *Machine) handleJob(res jobResult) {
	next, err := Transition(m.state, EventJobDone)
	if err != nil {
		m.opts.Logger.Error("stray job result", "state", m.state)
		return
	}
	m.state = next

	if res.err != nil {
		m.opts.Logger.Error("transcription failed", "error", res.err, "elapsed", res.elapsed)
		m.opts.Notify("transcription failed")
		return
	}
	if res.text == "" {
		m.opts.Logger.Debug("transcription empty", "elapsed", res.elapsed)
		return
	}

	m.opts.Logger.Info("transcribed", "chars", len(res.text), "elapsed", res.elapsed)
	if err := m.injector.Inject(res.text); err != nil {
		m.opts.Logger.Error("injecting text", "error", err)
		m.opts.Notify("could not type transcribed text")
	}
}

// shutdown discards any open session so the device is released on exit.
func (m *Machine) shutdown() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
	m.state = StateIdle
}
