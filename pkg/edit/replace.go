package edit

import (
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// ReplaceText covers a piece of existing text and draws new text in its
// place. (X, Y) is the canvas-space top-left of the old text. When OldText
// is empty no cover is drawn and the operation is a pure insertion.
//
// The cover box is sized from an estimated width of OldText at FontSize:
// true glyph metrics are not available for unembedded fonts, so the width
// heuristic in pdfdoc applies.
type ReplaceText struct {
	Page     int          `json:"pageIndex"`
	OldText  string       `json:"oldText,omitempty"`
	NewText  string       `json:"newText"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	FontSize float64      `json:"fontSize"`
	FontName string       `json:"fontName,omitempty"`
	Color    pdfdoc.Color `json:"fontColor"`
}

func (ReplaceText) rank() int { return rankReplace }

func (op ReplaceText) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if strings.TrimSpace(op.NewText) == "" {
		return docerr.Newf(docerr.Validation, "replacement on page %d has no new text", op.Page)
	}
	if op.FontSize <= 0 {
		return docerr.Newf(docerr.Validation,
			"replacement on page %d needs a positive font size, got %g", op.Page, op.FontSize)
	}
	return nil
}

func (op ReplaceText) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	font := pdfdoc.ResolveFont(op.FontName)

	if op.OldText != "" {
		width := pdfdoc.EstimateWidth(op.OldText, font, op.FontSize)
		cover := geom.CanvasToDocument(
			op.X-CoverPadding/2,
			op.Y-CoverPadding/2,
			width+CoverPadding,
			op.FontSize*1.2+CoverPadding,
			p.Height(),
		)
		if err := st.doc.Draw(op.Page, pdfdoc.FillRectOp{Rect: cover, Color: pdfdoc.White, Alpha: 1}); err != nil {
			return err
		}
	}

	return st.doc.Draw(op.Page, pdfdoc.TextOp{
		Text:  op.NewText,
		At:    textAnchor(op.X, op.Y, op.FontSize, p.Height()),
		Font:  font,
		Size:  op.FontSize,
		Color: op.Color,
		Alpha: 1,
	})
}

// ReplaceTexts validates and applies a set of text replacements in one call,
// all-or-nothing like DeleteRegions.
func ReplaceTexts(doc *pdfdoc.Document, replacements []ReplaceText) error {
	ops := make([]Op, len(replacements))
	for i, r := range replacements {
		ops[i] = r
	}
	_, err := Apply(doc, nil, ops)
	return err
}

// EmbedOCRText draws recognized text as visible page content at a canvas
// origin. This is the caller-directed variant of text embedding; the
// invisible searchable layer is built from batch results instead.
type EmbedOCRText struct {
	Page     int          `json:"pageIndex"`
	Text     string       `json:"text"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	FontSize float64      `json:"fontSize"`
	Color    pdfdoc.Color `json:"fontColor"`
}

func (EmbedOCRText) rank() int { return rankEmbedText }

func (op EmbedOCRText) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if strings.TrimSpace(op.Text) == "" {
		return docerr.Newf(docerr.Validation, "embedded text on page %d is empty", op.Page)
	}
	if op.FontSize <= 0 {
		return docerr.Newf(docerr.Validation,
			"embedded text on page %d needs a positive font size, got %g", op.Page, op.FontSize)
	}
	return nil
}

func (op EmbedOCRText) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	return st.doc.Draw(op.Page, pdfdoc.TextOp{
		Text:  op.Text,
		At:    textAnchor(op.X, op.Y, op.FontSize, p.Height()),
		Font:  pdfdoc.Helvetica,
		Size:  op.FontSize,
		Color: op.Color,
		Alpha: 1,
	})
}

// textAnchor converts a canvas-space top-left text origin into the
// document-space baseline start the draw queue expects. The baseline sits
// one ascent below the origin plus AnchorOffset.
func textAnchor(x, y, fontSize, pageH float64) geom.Point {
	baseline := y + fontSize*textAscent + AnchorOffset
	return geom.Point{X: x, Y: pageH - baseline}
}
