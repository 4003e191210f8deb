package edit

import (
	"math"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// HighlightAlpha is the fill opacity of a highlight.
const HighlightAlpha = 0.3

const (
	commentIconRadius = 4.0
	commentFontSize   = 9.0
	stampLineWidth    = 1.5
	stampFontSize     = 12.0
)

// Annotation defaults when no color is given.
var (
	highlightYellow = pdfdoc.Color{R: 255, G: 235, B: 59}
	commentAmber    = pdfdoc.Color{R: 255, G: 160, B: 0}
	stampRed        = pdfdoc.Color{R: 198, G: 40, B: 40}
)

// Highlight lays a translucent fill over a region. A zero Color means the
// default yellow; page content stays readable through the fill.
type Highlight struct {
	Page  int          `json:"pageIndex"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	W     float64      `json:"width"`
	H     float64      `json:"height"`
	Color pdfdoc.Color `json:"color"`
}

func (Highlight) rank() int { return rankAnnotate }

func (op Highlight) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if op.W <= 0 || op.H <= 0 {
		return docerr.Newf(docerr.Validation,
			"highlight on page %d must have positive extent, got %gx%g", op.Page, op.W, op.H)
	}
	return nil
}

func (op Highlight) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	color := op.Color
	if color == (pdfdoc.Color{}) {
		color = highlightYellow
	}
	return st.doc.Draw(op.Page, pdfdoc.FillRectOp{
		Rect:  geom.CanvasToDocument(op.X, op.Y, op.W, op.H, p.Height()),
		Color: color,
		Alpha: HighlightAlpha,
	})
}

// Comment drops a marker icon at a canvas point with its note text beside
// it. A zero Color means the default amber.
type Comment struct {
	Page  int          `json:"pageIndex"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Text  string       `json:"text"`
	Color pdfdoc.Color `json:"color"`
}

func (Comment) rank() int { return rankAnnotate }

func (op Comment) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if strings.TrimSpace(op.Text) == "" {
		return docerr.Newf(docerr.Validation, "comment on page %d has no text", op.Page)
	}
	return nil
}

func (op Comment) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	color := op.Color
	if color == (pdfdoc.Color{}) {
		color = commentAmber
	}
	icon := pdfdoc.CircleOp{
		Center: geom.Point{X: op.X, Y: p.Height() - op.Y},
		Radius: commentIconRadius,
		Color:  color,
		Fill:   true,
	}
	if err := st.doc.Draw(op.Page, icon); err != nil {
		return err
	}
	note := pdfdoc.TextOp{
		Text: op.Text,
		At: geom.Point{
			X: op.X + commentIconRadius*2,
			Y: p.Height() - (op.Y + commentFontSize/3),
		},
		Font:  pdfdoc.Helvetica,
		Size:  commentFontSize,
		Color: color,
		Alpha: 1,
	}
	return st.doc.Draw(op.Page, note)
}

// Stamp draws an outlined box with a bold label, the classic "APPROVED"
// mark. A zero Color means the default red.
type Stamp struct {
	Page  int          `json:"pageIndex"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	W     float64      `json:"width"`
	H     float64      `json:"height"`
	Label string       `json:"label"`
	Color pdfdoc.Color `json:"color"`
}

func (Stamp) rank() int { return rankAnnotate }

func (op Stamp) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if op.W <= 0 || op.H <= 0 {
		return docerr.Newf(docerr.Validation,
			"stamp on page %d must have positive extent, got %gx%g", op.Page, op.W, op.H)
	}
	if strings.TrimSpace(op.Label) == "" {
		return docerr.Newf(docerr.Validation, "stamp on page %d has no label", op.Page)
	}
	return nil
}

func (op Stamp) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	color := op.Color
	if color == (pdfdoc.Color{}) {
		color = stampRed
	}
	frame := pdfdoc.StrokeRectOp{
		Rect:  geom.CanvasToDocument(op.X, op.Y, op.W, op.H, p.Height()),
		Color: color,
		Width: stampLineWidth,
	}
	if err := st.doc.Draw(op.Page, frame); err != nil {
		return err
	}

	size := math.Min(stampFontSize, op.H*0.6)
	label := pdfdoc.TextOp{
		Text: op.Label,
		At: geom.Point{
			X: op.X + CoverPadding,
			Y: p.Height() - (op.Y + op.H/2 + size*0.35),
		},
		Font:  pdfdoc.HelveticaBold,
		Size:  size,
		Color: color,
		Alpha: 1,
	}
	return st.doc.Draw(op.Page, label)
}

// ShapeKind selects the primitive a Shape draws.
type ShapeKind string

const (
	ShapeLine   ShapeKind = "line"
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
)

// Shape draws a stroked or filled primitive. Geometry fields are read per
// kind: a line runs (X,Y)-(X2,Y2), a rect spans (X,Y,W,H), a circle centers
// on (X,Y) with Radius. All canvas space.
type Shape struct {
	Page   int          `json:"pageIndex"`
	Kind   ShapeKind    `json:"kind"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	X2     float64      `json:"x2,omitempty"`
	Y2     float64      `json:"y2,omitempty"`
	W      float64      `json:"width,omitempty"`
	H      float64      `json:"height,omitempty"`
	Radius float64      `json:"radius,omitempty"`
	Color  pdfdoc.Color `json:"color"`
	Width  float64      `json:"lineWidth,omitempty"`
	Fill   bool         `json:"fill,omitempty"`
}

func (Shape) rank() int { return rankAnnotate }

func (op Shape) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if op.Width < 0 {
		return docerr.Newf(docerr.Validation,
			"shape on page %d must not have a negative line width", op.Page)
	}
	switch op.Kind {
	case ShapeLine:
		return nil
	case ShapeRect:
		if op.W <= 0 || op.H <= 0 {
			return docerr.Newf(docerr.Validation,
				"rect shape on page %d must have positive extent, got %gx%g", op.Page, op.W, op.H)
		}
	case ShapeCircle:
		if op.Radius <= 0 {
			return docerr.Newf(docerr.Validation,
				"circle shape on page %d must have a positive radius, got %g", op.Page, op.Radius)
		}
	default:
		return docerr.Newf(docerr.Validation, "unknown shape kind %q", op.Kind)
	}
	return nil
}

func (op Shape) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	pageH := p.Height()

	switch op.Kind {
	case ShapeLine:
		return st.doc.Draw(op.Page, pdfdoc.LineOp{
			From:  geom.Point{X: op.X, Y: pageH - op.Y},
			To:    geom.Point{X: op.X2, Y: pageH - op.Y2},
			Color: op.Color,
			Width: op.Width,
		})
	case ShapeRect:
		rect := geom.CanvasToDocument(op.X, op.Y, op.W, op.H, pageH)
		if op.Fill {
			return st.doc.Draw(op.Page, pdfdoc.FillRectOp{Rect: rect, Color: op.Color, Alpha: 1})
		}
		return st.doc.Draw(op.Page, pdfdoc.StrokeRectOp{Rect: rect, Color: op.Color, Width: op.Width})
	case ShapeCircle:
		return st.doc.Draw(op.Page, pdfdoc.CircleOp{
			Center: geom.Point{X: op.X, Y: pageH - op.Y},
			Radius: op.Radius,
			Color:  op.Color,
			Width:  op.Width,
			Fill:   op.Fill,
		})
	}
	return docerr.Newf(docerr.Validation, "unknown shape kind %q", op.Kind)
}
