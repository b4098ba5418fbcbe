// Package inject delivers transcribed text into the focused application,
// either by keystroke simulation or clipboard paste via robotgo, or over
// BLE to a hardware keyboard bridge.
package inject

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// TextInjector is the capability the capture pipeline needs: turn a
// transcript into input events for whatever currently has focus.
type TextInjector interface {
	Inject(text string) error
}

// Injector types or pastes text into the active application.
type Injector struct {
	method string // "type" or "paste"
}

var _ TextInjector = (*Injector)(nil)

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{method: method}
}

// Inject sends text to the active application. Empty text is a no-op.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text)
	}
}

// typeText simulates individual keystrokes. Preserves clipboard contents
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to the clipboard and pastes it with the platform
// paste shortcut. Faster for long text; the previous clipboard content
// is restored best effort.
func (inj *Injector) paste(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := robotgo.KeyTap("v", pasteModifier()); err != nil {
		return fmt.Errorf("inject: key tap paste: %w", err)
	}

	_ = robotgo.WriteAll(prev)

	return nil
}

// pasteModifier returns the paste shortcut modifier for the host platform.
func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// BLESender is the transport the BLE keyboard bridge exposes for text.
type BLESender interface {
	Send(text string) error
}

// BLEInjector delivers transcripts over BLE to a hardware keyboard
// bridge, which replays them as HID keystrokes on its host. Useful when
// the transcript targets a different machine than the one recording.
type BLEInjector struct {
	sender BLESender
}

var _ TextInjector = (*BLEInjector)(nil)

// NewBLEInjector creates a BLEInjector backed by the given sender.
// Panics if sender is nil (programmer error).
func NewBLEInjector(sender BLESender) *BLEInjector {
	if sender == nil {
		panic("inject: NewBLEInjector called with nil sender")
	}
	return &BLEInjector{sender: sender}
}

// Inject forwards text to the bridge. The empty-text no-op mirrors the
// other injectors so every TextInjector honors the same contract
// regardless of whether the transport also checks.
func (b *BLEInjector) Inject(text string) error {
	if text == "" {
		return nil
	}
	return b.sender.Send(text)
}
