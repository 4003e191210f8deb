// Package edit applies caller-facing edit operations to a document.
//
// PDF content streams are effectively immutable, so content edits are
// cover-then-redraw: an opaque fill hides the old content and new content is
// drawn above it. Structural edits (rotate, delete, reorder, extract, insert)
// mutate the in-memory page list. Nothing touches bytes until the document is
// serialized.
//
// Operations carry a fixed rank and always apply in rank order, regardless of
// the order the caller queued them:
//
//	1 region deletions
//	2 text replacements
//	3 page rotations
//	4 page deletions
//	5 reordering and extraction
//	6 blank-page insertions
//	7 recognized-text embedding
//	8 annotations
//	9 form filling (followed by a flatten)
//
// Covers must land before anything drawn later, and draws that survive a
// structural shuffle must be queued after it; the rank order encodes exactly
// that. Page indices in ranks 1-4 refer to the document as loaded; ranks 7-9
// refer to the layout after structural edits. Within a rank, operations keep
// their call order.
package edit

import (
	"fmt"
	"sort"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/form"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

const (
	// CoverPadding is the total padding added to a cover box, in points,
	// split evenly per side. Covers must overhang the estimated text box or
	// antialiased glyph edges bleed out.
	CoverPadding = 4.0

	// AnchorOffset is how far below the nominal baseline replacement text is
	// drawn, in points, masking baseline and cover-edge artifacts.
	AnchorOffset = 1.5

	// textAscent is the Helvetica ascender (718/1000 font units), used to
	// place a baseline from a top-anchored text origin.
	textAscent = 0.718
)

// Application ranks. Lower ranks apply first.
const (
	rankRedact = iota + 1
	rankReplace
	rankRotate
	rankPageDelete
	rankRestructure
	rankInsert
	rankEmbedText
	rankAnnotate
	rankFormFill
)

// Op is one edit operation. Implementations validate against the document
// they will run on and either apply whole or not at all.
type Op interface {
	rank() int
	validate(doc *pdfdoc.Document) error
	apply(st *state) error
}

// state threads the mutable targets and collected warnings through one
// Apply run.
type state struct {
	doc      *pdfdoc.Document
	form     *form.Form
	fills    int // form-fill operations requested, matched or not
	warnings []string
}

func (s *state) warnf(format string, args ...interface{}) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// Apply runs the operations against the document in rank order. frm may be
// nil when the document has no fillable form; form-fill operations then warn
// and skip. The returned warnings are non-fatal; an error means the edit set
// was rejected and the document must not be serialized.
//
// Each rank validates all of its operations before any of them mutates, so a
// malformed operation rejects its whole rank untouched.
func Apply(doc *pdfdoc.Document, frm *form.Form, ops []Op) ([]string, error) {
	if doc == nil {
		return nil, docerr.New(docerr.Validation, "no document to edit")
	}

	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].rank() < sorted[j].rank() })

	st := &state{doc: doc, form: frm}
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].rank() == sorted[start].rank() {
			end++
		}
		group := sorted[start:end]

		for _, op := range group {
			if err := op.validate(st.doc); err != nil {
				return st.warnings, err
			}
		}

		// Page deletions all use as-loaded indices, so the whole rank merges
		// into one removal instead of applying sequentially.
		if group[0].rank() == rankPageDelete {
			if err := applyPageDeletes(st, group); err != nil {
				return st.warnings, err
			}
		} else {
			for _, op := range group {
				if err := op.apply(st); err != nil {
					return st.warnings, err
				}
			}
		}
		start = end
	}

	if st.fills > 0 && st.form != nil {
		warnings, err := st.form.Flatten(st.doc)
		st.warnings = append(st.warnings, warnings...)
		if err != nil {
			return st.warnings, err
		}
	}
	return st.warnings, nil
}

func applyPageDeletes(st *state, group []Op) error {
	var indices []int
	for _, op := range group {
		indices = append(indices, op.(PageDelete).Indices...)
	}
	return st.doc.DeletePages(indices)
}
