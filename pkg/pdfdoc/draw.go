package pdfdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
)

// Color is an opaque RGB color. The zero value is black.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// White is the page background color used by cover fills.
var White = Color{R: 255, G: 255, B: 255}

// ParseColor reads a hex color of the form "#rrggbb" or "rrggbb". The empty
// string is black.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return Color{}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Color{}, docerr.Newf(docerr.Validation, "color %q is not a hex rgb value", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, docerr.Newf(docerr.Validation, "color %q is not a hex rgb value", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex renders the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalJSON writes the color in hex string form.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON accepts the hex string form as well as an {r,g,b} object.
func (c *Color) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var rgb struct {
		R uint8 `json:"r"`
		G uint8 `json:"g"`
		B uint8 `json:"b"`
	}
	if err := json.Unmarshal(data, &rgb); err != nil {
		return err
	}
	*c = Color{R: rgb.R, G: rgb.G, B: rgb.B}
	return nil
}

// DrawOp is one queued drawing operation. Ops accumulate on a page in call
// order and render in that order at serialization time, which is what gives
// cover-then-redraw editing its meaning. All coordinates are document space.
type DrawOp interface {
	isDrawOp()
}

// FillRectOp fills a rectangle. Alpha 1 is opaque; redaction uses it that
// way, highlights use 0.3.
type FillRectOp struct {
	Rect  geom.Rect
	Color Color
	Alpha float64
}

// StrokeRectOp outlines a rectangle. A Width of 0 uses the writer's default
// line width.
type StrokeRectOp struct {
	Rect  geom.Rect
	Color Color
	Width float64
}

// TextOp draws a line of text with its baseline starting at At.
type TextOp struct {
	Text  string
	At    geom.Point
	Font  Font
	Size  float64
	Color Color
	Alpha float64
}

// LineOp strokes a straight line.
type LineOp struct {
	From  geom.Point
	To    geom.Point
	Color Color
	Width float64
}

// CircleOp draws a circle, stroked by default or filled when Fill is set.
type CircleOp struct {
	Center geom.Point
	Radius float64
	Color  Color
	Width  float64
	Fill   bool
}

// ImageOp draws an encoded image stretched over Rect.
type ImageOp struct {
	Data []byte
	Rect geom.Rect

	format string // detected at queue time
}

func (FillRectOp) isDrawOp()   {}
func (StrokeRectOp) isDrawOp() {}
func (TextOp) isDrawOp()       {}
func (LineOp) isDrawOp()       {}
func (CircleOp) isDrawOp()     {}
func (ImageOp) isDrawOp()      {}

// Draw validates the operation and appends it to the page's queue. The
// operation is either queued whole or rejected whole; a rejected op leaves
// the document untouched.
func (d *Document) Draw(page int, op DrawOp) error {
	p, err := d.Page(page)
	if err != nil {
		return err
	}

	switch v := op.(type) {
	case FillRectOp:
		if err := validRect(v.Rect); err != nil {
			return err
		}
		if err := validAlpha(v.Alpha); err != nil {
			return err
		}
	case StrokeRectOp:
		if err := validRect(v.Rect); err != nil {
			return err
		}
		if v.Width < 0 {
			return docerr.Newf(docerr.Validation, "line width must not be negative, got %g", v.Width)
		}
	case TextOp:
		if strings.TrimSpace(v.Text) == "" {
			return docerr.New(docerr.Validation, "text operation has no text")
		}
		if v.Size <= 0 {
			return docerr.Newf(docerr.Validation, "font size must be positive, got %g", v.Size)
		}
		if err := validAlpha(v.Alpha); err != nil {
			return err
		}
	case LineOp:
		if v.Width < 0 {
			return docerr.Newf(docerr.Validation, "line width must not be negative, got %g", v.Width)
		}
	case CircleOp:
		if v.Radius <= 0 {
			return docerr.Newf(docerr.Validation, "circle radius must be positive, got %g", v.Radius)
		}
	case ImageOp:
		if err := validRect(v.Rect); err != nil {
			return err
		}
		format, err := sniffImageFormat(v.Data)
		if err != nil {
			return err
		}
		v.format = format
		op = v
	default:
		return docerr.Newf(docerr.Validation, "unsupported draw operation %T", op)
	}

	p.ops = append(p.ops, op)
	return nil
}

func validRect(r geom.Rect) error {
	if r.W <= 0 || r.H <= 0 {
		return docerr.Newf(docerr.Validation, "rectangle must have positive extent, got %gx%g", r.W, r.H)
	}
	return nil
}

func validAlpha(a float64) error {
	if a <= 0 || a > 1 {
		return docerr.Newf(docerr.Validation, "alpha must be within (0,1], got %g", a)
	}
	return nil
}

// sniffImageFormat decodes just enough of the image to learn its encoding,
// returned in the upper-case form the page writer expects.
func sniffImageFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", docerr.New(docerr.Validation, "image operation has no data")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", docerr.Wrap(docerr.InvalidImage, "image data could not be decoded", err)
	}
	return strings.ToUpper(format), nil
}
