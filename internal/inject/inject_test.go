package inject

import (
	"errors"
	"testing"
)

func TestNewInjectorMethods(t *testing.T) {
	for _, method := range []string{"type", "paste"} {
		inj := NewInjector(method)
		if inj.method != method {
			t.Errorf("method = %q, want %q", inj.method, method)
		}
	}
}

func TestPasteModifier(t *testing.T) {
	// Either way it must be a real robotgo modifier name.
	mod := pasteModifier()
	if mod != "cmd" && mod != "ctrl" {
		t.Errorf("pasteModifier() = %q, want cmd or ctrl", mod)
	}
}

// fakeSender records Send calls for BLEInjector tests.
type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestBLEInjectorInject(t *testing.T) {
	fake := &fakeSender{}
	inj := NewBLEInjector(fake)

	if err := inj.Inject("hello world"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0] != "hello world" {
		t.Errorf("sent = %v, want [hello world]", fake.sent)
	}
}

func TestBLEInjectorEmptyTextNoOp(t *testing.T) {
	fake := &fakeSender{}
	inj := NewBLEInjector(fake)

	if err := inj.Inject(""); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(fake.sent) != 0 {
		t.Errorf("sent = %v, want none", fake.sent)
	}
}

func TestBLEInjectorPropagatesError(t *testing.T) {
	want := errors.New("disconnected")
	inj := NewBLEInjector(&fakeSender{err: want})

	if err := inj.Inject("text"); !errors.Is(err, want) {
		t.Errorf("Inject() error = %v, want %v", err, want)
	}
}

func TestBLEInjectorNilSenderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewBLEInjector(nil) should panic")
		}
	}()
	NewBLEInjector(nil)
}
