// Package audio captures microphone input via miniaudio (malgo) and
// converts it to the mono 16kHz float32 format the transcription
// backends consume.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// ErrDeviceUnavailable indicates no usable capture device could be opened.
var ErrDeviceUnavailable = errors.New("audio: no usable capture device")

// Engine owns the process-wide miniaudio context. It is created once at
// startup and opens one Session per recording.
type Engine struct {
	ctx *malgo.AllocatedContext

	mu   sync.Mutex
	open bool // one session at a time
}

// NewEngine initializes the audio subsystem. Failure here is fatal:
// without a capture backend the application cannot do anything useful.
func NewEngine() (*Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}
	return &Engine{ctx: ctx}, nil
}

// Close releases the miniaudio context. Any open session must be closed first.
func (e *Engine) Close() error {
	if e.ctx == nil {
		return nil
	}
	if err := e.ctx.Uninit(); err != nil {
		return fmt.Errorf("audio: uninitializing context: %w", err)
	}
	e.ctx.Free()
	e.ctx = nil
	return nil
}

// DeviceInfo describes one capture device for -list-devices output.
type DeviceInfo struct {
	Name    string
	Default bool
}

// InputDevices enumerates the available capture devices.
func (e *Engine) InputDevices() ([]DeviceInfo, error) {
	infos, err := e.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerating capture devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// Capture is the finished product of one recording session: the
// accumulated samples plus the device configuration they were captured
// at. Ownership transfers to the caller on Session.Close.
type Capture struct {
	Samples   []float32
	Rate      int // device native sample rate
	Channels  int // device native channel count
	Overruns  int // suspected dropped-buffer events, warning only
	StartedAt time.Time
}

// Duration returns the captured audio length.
func (c Capture) Duration() time.Duration {
	if c.Rate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.Rate)
}

// Session is one open recording. The malgo callback appends to buf; the
// owner reads it only after Close has stopped the device, so the two
// never touch the buffer concurrently.
type Session struct {
	engine *Engine
	device *malgo.Device

	rate      int
	channels  int
	startedAt time.Time

	mu       sync.Mutex
	buf      []float32
	lastData time.Time
	overruns int
	closed   bool
}

// Open starts capturing from the default input device at its native rate
// and channel count (queried after device init, never assumed). Samples
// are converted to float32 by miniaudio. Returns ErrDeviceUnavailable if
// the device cannot be opened or started.
func (e *Engine) Open() (*Session, error) {
	e.mu.Lock()
	if e.open {
		e.mu.Unlock()
		return nil, errors.New("audio: session already open")
	}
	e.open = true
	e.mu.Unlock()

	s := &Session{engine: e, startedAt: time.Now()}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 0 // native
	cfg.SampleRate = 0       // native
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(e.ctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onData})
	if err != nil {
		e.release()
		return nil, fmt.Errorf("%w: init: %v", ErrDeviceUnavailable, err)
	}

	s.device = device
	s.rate = int(device.SampleRate())
	s.channels = int(device.CaptureChannels())

	if err := device.Start(); err != nil {
		device.Uninit()
		e.release()
		return nil, fmt.Errorf("%w: start: %v", ErrDeviceUnavailable, err)
	}

	return s, nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
}

// Rate returns the device's native sample rate.
func (s *Session) Rate() int { return s.rate }

// Channels returns the device's native channel count.
func (s *Session) Channels() int { return s.channels }

// Close stops the stream and returns ownership of the accumulated
// buffer. Safe to call with zero frames captured: the result is a valid
// empty Capture. Safe to call more than once; later calls return an
// empty Capture.
func (s *Session) Close() Capture {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Capture{Rate: s.rate, Channels: s.channels, StartedAt: s.startedAt}
	}
	s.closed = true
	s.mu.Unlock()

	// Uninit outside the lock: the data callback takes the lock and
	// malgo waits for in-flight callbacks during teardown.
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}

	s.mu.Lock()
	buf := s.buf
	s.buf = nil
	overruns := s.overruns
	s.mu.Unlock()

	s.engine.release()

	return Capture{
		Samples:   buf,
		Rate:      s.rate,
		Channels:  s.channels,
		Overruns:  overruns,
		StartedAt: s.startedAt,
	}
}

// onData runs on the miniaudio device thread. It only appends to the
// session buffer and returns quickly; blocking here causes device
// underruns.
func (s *Session) onData(_, input []byte, frameCount uint32) {
	sampleCount := int(frameCount) * s.channels
	samples := decodeF32LE(input, sampleCount)

	now := time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// A callback gap far beyond the buffer cadence means the backend
	// likely dropped data. Recorded as a warning on the capture; partial
	// audio beats aborting mid-recording.
	if !s.lastData.IsZero() && s.rate > 0 && frameCount > 0 {
		period := time.Duration(frameCount) * time.Second / time.Duration(s.rate)
		if now.Sub(s.lastData) > 4*period {
			s.overruns++
		}
	}
	s.lastData = now
	s.buf = append(s.buf, samples...)
	s.mu.Unlock()
}

// decodeF32LE reinterprets little-endian float32 bytes as samples.
func decodeF32LE(data []byte, sampleCount int) []float32 {
	if max := len(data) / 4; sampleCount > max {
		sampleCount = max
	}
	samples := make([]float32, sampleCount)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
