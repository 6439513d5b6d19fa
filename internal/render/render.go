// Package render draws power-spectrum snapshots to images. It is a headless
// replacement for a live analyzer display: the application hands it the
// latest full-span spectrum and writes the result out as PNG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	defaultWidth  = 1024
	defaultHeight = 512

	// Border sizes in pixels
	topBorder    = 20
	leftBorder   = 60
	bottomBorder = 40
	rightBorder  = 20

	// Padding in dB applied above and below the trace
	powerPadding = 5.0

	datetimeFormat = time.DateTime
)

var (
	backgroundColor = color.RGBA{255, 255, 255, 255}
	plotColor       = color.RGBA{16, 16, 16, 255}
	traceColor      = color.RGBA{0, 64, 192, 255}
	gridColor       = color.RGBA{224, 224, 224, 255}
)

// Snapshot is one full-span spectrum to draw.
type Snapshot struct {
	FrequencyMin float64   // Frequency of the first power bin in Hz
	FrequencyMax float64   // Frequency of the last power bin in Hz
	Power        []float64 // Power per bin in dB, -Inf for empty bins
	Timestamp    time.Time // Capture time of the snapshot
	Detector     string    // Detector label for the info bar
	Span         uint64    // Span count for the info bar
}

// Config holds the renderer options.
type Config struct {
	Width    int     // Plot area width in pixels, borders excluded
	Height   int     // Plot area height in pixels, borders excluded
	FontPath string  // Optional TTF for annotations; built-in bitmap font if empty
	FontSize float64 // Point size for TTF annotations
}

// Renderer draws spectrum snapshots.
type Renderer struct {
	config    Config
	annotator *annotator
}

// New creates a renderer. The font file, when configured, is loaded once.
func New(config Config) (*Renderer, error) {
	if config.Width == 0 {
		config.Width = defaultWidth
	}
	if config.Height == 0 {
		config.Height = defaultHeight
	}
	if config.Width < 0 || config.Height < 0 {
		return nil, fmt.Errorf("render: invalid plot size %dx%d", config.Width, config.Height)
	}

	annotator, err := newAnnotator(config.FontPath, config.FontSize)
	if err != nil {
		return nil, err
	}

	return &Renderer{config: config, annotator: annotator}, nil
}

// Render draws a snapshot and returns the image.
func (r *Renderer) Render(snap *Snapshot) (*image.RGBA, error) {
	if len(snap.Power) < 2 {
		return nil, fmt.Errorf("render: snapshot has %d power bins, need at least 2", len(snap.Power))
	}
	if snap.FrequencyMin >= snap.FrequencyMax {
		return nil, fmt.Errorf("render: invalid frequency range [%f, %f]", snap.FrequencyMin, snap.FrequencyMax)
	}

	fullWidth := r.config.Width + leftBorder + rightBorder
	fullHeight := r.config.Height + topBorder + bottomBorder
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	plotArea := image.Rect(leftBorder, topBorder, leftBorder+r.config.Width, topBorder+r.config.Height)
	minDB, maxDB := powerBounds(snap.Power)

	r.drawGrid(img, plotArea, snap, minDB, maxDB)
	r.drawTrace(img, plotArea, snap.Power, minDB, maxDB)
	r.drawFrame(img, plotArea)
	r.drawInfo(img, plotArea, snap)

	return img, nil
}

// WritePNG renders a snapshot and encodes it as PNG.
func (r *Renderer) WritePNG(w io.Writer, snap *Snapshot) error {
	img, err := r.Render(snap)
	if err != nil {
		return err
	}
	if err = png.Encode(w, img); err != nil {
		return fmt.Errorf("render: encoding png: %w", err)
	}
	return nil
}

// WriteFile renders a snapshot into the named PNG file.
func (r *Renderer) WriteFile(path string, snap *Snapshot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: creating %s: %w", path, err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("render: closing %s: %w", path, cErr)
		}
	}()

	return r.WritePNG(f, snap)
}

func (r *Renderer) drawGrid(img *image.RGBA, area image.Rectangle, snap *Snapshot, minDB, maxDB float64) {
	// Vertical gridlines with frequency labels, roughly every 150 px.
	count := max(area.Dx()/150, 1)
	for i := 0; i <= count; i++ {
		x := area.Min.X + i*area.Dx()/count
		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}

		hz := snap.FrequencyMin + float64(i)*(snap.FrequencyMax-snap.FrequencyMin)/float64(count)
		fract, suffix := humanize.ComputeSI(hz)
		r.annotator.drawString(img, fmt.Sprintf("%0.2f %sHz", fract, suffix), x-20, area.Max.Y+15)
	}

	// Horizontal gridlines with dB labels, roughly every 75 px.
	count = max(area.Dy()/75, 1)
	for i := 0; i <= count; i++ {
		y := area.Min.Y + i*area.Dy()/count
		for x := area.Min.X; x < area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}

		db := maxDB - float64(i)*(maxDB-minDB)/float64(count)
		r.annotator.drawString(img, fmt.Sprintf("%0.0f dB", db), 5, y+4)
	}
}

func (r *Renderer) drawTrace(img *image.RGBA, area image.Rectangle, power []float64, minDB, maxDB float64) {
	prevY := -1
	denom := max(area.Dx()-1, 1)
	for x := 0; x < area.Dx(); x++ {
		bin := x * (len(power) - 1) / denom
		p := power[bin]
		if math.IsInf(p, -1) || math.IsNaN(p) {
			prevY = -1
			continue
		}

		norm := (p - minDB) / (maxDB - minDB)
		y := area.Max.Y - 1 - int(norm*float64(area.Dy()-1))

		// Connect to the previous column so steep edges stay visible.
		from, to := y, y
		if prevY >= 0 {
			from, to = min(prevY, y), max(prevY, y)
		}
		for yy := from; yy <= to; yy++ {
			img.Set(area.Min.X+x, yy, traceColor)
		}
		prevY = y
	}
}

func (r *Renderer) drawFrame(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X; x < area.Max.X; x++ {
		img.Set(x, area.Min.Y, plotColor)
		img.Set(x, area.Max.Y-1, plotColor)
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		img.Set(area.Min.X, y, plotColor)
		img.Set(area.Max.X-1, y, plotColor)
	}
}

func (r *Renderer) drawInfo(img *image.RGBA, area image.Rectangle, snap *Snapshot) {
	info := fmt.Sprintf("span %s  |  detector %s  |  %s",
		humanize.Comma(int64(snap.Span)), snap.Detector, snap.Timestamp.Format(datetimeFormat))
	r.annotator.drawString(img, info, area.Min.X, area.Max.Y+30)
}

// powerBounds returns the finite min and max of the trace with padding,
// falling back to a fixed range when every bin is empty.
func powerBounds(power []float64) (minDB, maxDB float64) {
	minDB, maxDB = math.Inf(1), math.Inf(-1)
	for _, p := range power {
		if math.IsInf(p, 0) || math.IsNaN(p) {
			continue
		}
		minDB = math.Min(minDB, p)
		maxDB = math.Max(maxDB, p)
	}

	if minDB > maxDB { // no finite bins
		return -120, 0
	}
	if maxDB-minDB < 1 {
		maxDB = minDB + 1
	}
	return minDB - powerPadding, maxDB + powerPadding
}
