// Package hotkey watches a single global key chord via gohook and emits
// discrete press/release transitions while it is held.
//
// gohook observes the OS event stream without consuming it, so the
// literal keystroke still reaches the focused application. The default
// chord is therefore a modifier combination that types nothing on its
// own.
package hotkey

import (
	"sync"
	"time"

	hook "github.com/robotn/gohook"
)

// Kind distinguishes the two key-state transitions.
type Kind int

const (
	// Pressed is emitted once when the chord goes down, with OS
	// key-repeat notifications suppressed.
	Pressed Kind = iota
	// Released is emitted once when the chord comes back up.
	Released
)

func (k Kind) String() string {
	if k == Pressed {
		return "pressed"
	}
	return "released"
}

// KeyEvent is one observed transition of the configured chord.
type KeyEvent struct {
	Kind Kind
	Time time.Time
}

// Listener installs a process-wide hook for one key chord and exposes
// its transitions as an event stream.
type Listener struct {
	keys []string
	ch   chan KeyEvent
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	held bool
}

// NewListener creates a Listener for the given chord. keys are lowercase
// gohook key names, e.g. ["ctrl", "shift", "space"].
func NewListener(keys []string) *Listener {
	return &Listener{
		keys: keys,
		ch:   make(chan KeyEvent, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel delivering chord transitions. It is closed
// when the hook terminates.
func (l *Listener) Events() <-chan KeyEvent {
	return l.ch
}

// Start installs the hook and blocks until Stop is called. Run it in a
// goroutine. If gohook cannot install the hook (missing accessibility
// permissions on macOS, no X display on Linux) the event channel closes
// immediately; the caller treats that as a fatal startup condition.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) {
		l.press(time.Now())
	})
	hook.Register(hook.KeyHold, l.keys, func(e hook.Event) {
		l.press(time.Now()) // repeat notifications, deduplicated
	})
	hook.Register(hook.KeyUp, l.keys, func(e hook.Event) {
		l.release(time.Now())
	})

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// press emits Pressed on the first down transition only. While the key
// is held the OS delivers repeats; those are dropped here so the state
// machine sees exactly one Pressed per physical hold.
func (l *Listener) press(now time.Time) {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return
	}
	l.held = true
	l.mu.Unlock()

	l.emit(KeyEvent{Kind: Pressed, Time: now})
}

// release emits Released only if a press was previously observed, so a
// stray key-up at startup produces nothing.
func (l *Listener) release(now time.Time) {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return
	}
	l.held = false
	l.mu.Unlock()

	l.emit(KeyEvent{Kind: Released, Time: now})
}

// emit delivers without blocking the hook callback; if the consumer has
// fallen 16 events behind the event is dropped rather than stalling the
// OS input hook.
func (l *Listener) emit(ev KeyEvent) {
	select {
	case l.ch <- ev:
	default:
	}
}

// Stop terminates the hook. Safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
