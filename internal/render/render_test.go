package render

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func testSnapshot(bins int) *Snapshot {
	power := make([]float64, bins)
	for i := range power {
		power[i] = -90 + 40*math.Exp(-math.Pow(float64(i-bins/2)/8, 2))
	}
	return &Snapshot{
		FrequencyMin: 696.25e6,
		FrequencyMax: 703.75e6,
		Power:        power,
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Detector:     "avg",
		Span:         3,
	}
}

func TestRenderer_WritePNG(t *testing.T) {
	r, err := New(Config{Width: 320, Height: 160})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err = r.WritePNG(&buf, testSnapshot(768)); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	// PNG signature
	if buf.Len() < 8 || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Errorf("Output does not look like a PNG (%d bytes)", buf.Len())
	}
}

func TestRenderer_ImageSize(t *testing.T) {
	r, err := New(Config{Width: 200, Height: 100})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	img, err := r.Render(testSnapshot(64))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	bounds := img.Bounds()
	wantW := 200 + leftBorder + rightBorder
	wantH := 100 + topBorder + bottomBorder
	if bounds.Dx() != wantW || bounds.Dy() != wantH {
		t.Errorf("Image size: got %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), wantW, wantH)
	}
}

func TestRenderer_EmptyBins(t *testing.T) {
	r, err := New(Config{Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	// All bins empty: the renderer must fall back to a fixed power range
	// instead of dividing by an infinite bound.
	snap := testSnapshot(32)
	for i := range snap.Power {
		snap.Power[i] = math.Inf(-1)
	}

	if _, err = r.Render(snap); err != nil {
		t.Errorf("Render with empty bins failed: %v", err)
	}
}

func TestRenderer_Validation(t *testing.T) {
	r, err := New(Config{})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	snap := testSnapshot(8)
	snap.Power = snap.Power[:1]
	if _, err = r.Render(snap); err == nil {
		t.Error("Expected error for single-bin snapshot")
	}

	snap = testSnapshot(8)
	snap.FrequencyMax = snap.FrequencyMin
	if _, err = r.Render(snap); err == nil {
		t.Error("Expected error for empty frequency range")
	}

	if _, err = New(Config{Width: -1}); err == nil {
		t.Error("Expected error for negative plot size")
	}

	if _, err = New(Config{FontPath: "/nonexistent/font.ttf"}); err == nil {
		t.Error("Expected error for missing font file")
	}
}
