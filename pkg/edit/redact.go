package edit

import (
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// DeleteRegion covers one rectangular region with an opaque white fill.
// Coordinates are canvas space: points, origin top-left, Y down, the space
// edit requests arrive in. The glyphs under the fill stay in the content
// stream; this removes visible content only.
//
// Applying the same region twice is visually identical to applying it once.
type DeleteRegion struct {
	Page int     `json:"pageIndex"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"width"`
	H    float64 `json:"height"`
}

func (DeleteRegion) rank() int { return rankRedact }

func (op DeleteRegion) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if op.W <= 0 || op.H <= 0 {
		return docerr.Newf(docerr.Validation,
			"deletion region on page %d must have positive extent, got %gx%g", op.Page, op.W, op.H)
	}
	return nil
}

func (op DeleteRegion) apply(st *state) error {
	p, err := st.doc.Page(op.Page)
	if err != nil {
		return err
	}
	return st.doc.Draw(op.Page, pdfdoc.FillRectOp{
		Rect:  geom.CanvasToDocument(op.X, op.Y, op.W, op.H, p.Height()),
		Color: pdfdoc.White,
		Alpha: 1,
	})
}

// DeleteRegions validates and applies a set of region deletions in one call.
// The set is all-or-nothing: one bad region rejects every region before any
// fill is queued.
func DeleteRegions(doc *pdfdoc.Document, regions []DeleteRegion) error {
	ops := make([]Op, len(regions))
	for i, r := range regions {
		ops[i] = r
	}
	_, err := Apply(doc, nil, ops)
	return err
}
