package audio

import (
	"math"
	"testing"
)

func TestResampleSameRateMonoIsCopy(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3, -0.4, 0.5}
	out, err := Resample(in, 16000, 1, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], in[i])
		}
	}
	// Must be a copy, not an alias.
	out[0] = 9
	if in[0] == 9 {
		t.Error("Resample() returned the input slice instead of a copy")
	}
}

func TestResampleDownmixAverages(t *testing.T) {
	// Stereo frames: (1,-1)->0, (0.5,0.5)->0.5, (-0.5,0.5)->0
	in := []float32{1, -1, 0.5, 0.5, -0.5, 0.5}
	out, err := Resample(in, 48000, 2, 48000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	want := []float32{0, 0.5, 0}
	if len(out) != len(want) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestResampleFourChannelDownmix(t *testing.T) {
	in := []float32{1, 1, 1, 1, 0, 0.4, 0.4, 0} // -> 1, 0.2
	out, err := Resample(in, 44100, 4, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0] != 1 {
		t.Errorf("out[0] = %f, want 1", out[0])
	}
	if math.Abs(float64(out[1]-0.2)) > 1e-6 {
		t.Errorf("out[1] = %f, want 0.2", out[1])
	}
}

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float32, 32000) // 1s at 32kHz
	out, err := Resample(in, 32000, 1, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != 16000 {
		t.Errorf("len(out) = %d, want 16000", len(out))
	}
}

func TestResampleInterpolatesLinearly(t *testing.T) {
	// Doubling the rate of a ramp should land midpoints between samples.
	in := []float32{0, 0.2, 0.4, 0.6}
	out, err := Resample(in, 8000, 1, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != 8 {
		t.Fatalf("len(out) = %d, want 8", len(out))
	}
	want := []float32{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.6}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestResampleClampsOutput(t *testing.T) {
	in := []float32{2.0, -3.0, 0.5}
	out, err := Resample(in, 16000, 1, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	want := []float32{1.0, -1.0, 0.5}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestResampleEmptyInput(t *testing.T) {
	out, err := Resample(nil, 44100, 2, 16000)
	if err != nil {
		t.Fatalf("Resample() on empty input error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0", len(out))
	}
}

func TestResampleMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		srcRate  int
		srcCh    int
		dstRate  int
	}{
		{"zero src rate", []float32{0}, 0, 1, 16000},
		{"zero dst rate", []float32{0}, 44100, 1, 0},
		{"zero channels", []float32{0}, 44100, 0, 16000},
		{"channel mismatch", []float32{0, 0, 0}, 44100, 2, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resample(tt.samples, tt.srcRate, tt.srcCh, tt.dstRate); err == nil {
				t.Error("Resample() expected error, got nil")
			}
		})
	}
}

func TestResampleDeterministic(t *testing.T) {
	in := []float32{0.1, 0.7, -0.3, 0.9, -0.8, 0.2}
	a, err := Resample(in, 44100, 2, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	b, err := Resample(in, 44100, 2, 16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("run 1 out[%d] = %f, run 2 = %f", i, a[i], b[i])
		}
	}
}
