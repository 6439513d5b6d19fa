package render

import (
	"fmt"
	"image"
	"os"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	dpi             = 72.0
	defaultFontSize = 12.0
)

// annotator draws label strings. With a TTF configured it uses freetype
// rendering; otherwise it falls back to the built-in fixed-size bitmap face.
type annotator struct {
	context *freetype.Context // nil when using the bitmap fallback
}

func newAnnotator(fontPath string, fontSize float64) (*annotator, error) {
	if fontPath == "" {
		return &annotator{}, nil
	}

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("render: reading font: %w", err)
	}
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("render: parsing font: %w", err)
	}

	if fontSize == 0 {
		fontSize = defaultFontSize
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.Black)
	context.SetHinting(font.HintingFull)

	return &annotator{context: context}, nil
}

func (a *annotator) drawString(img *image.RGBA, s string, x, y int) {
	if a.context != nil {
		a.context.SetClip(img.Bounds())
		a.context.SetDst(img)
		_, _ = a.context.DrawString(s, freetype.Pt(x, y))
		return
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
