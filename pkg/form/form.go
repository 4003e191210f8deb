// Package form models the fillable fields of a document and flattens their
// values into static page content.
//
// Field kinds are a tagged variant {TextField, CheckBox, RadioGroup}. A fill
// resolves its field name in a fixed try-order over those kinds, so a text
// field named like a checkbox always wins deterministically. Flattening
// draws the current values onto the pages and ends the form's life: after
// it, fills are refused and the values are plain content.
//
// Discovery from raw PDF bytes is best-effort: field dictionaries are found
// by structural scan, the same technique the layer detector uses, without a
// full object-graph parse. Fields whose page binding cannot be resolved are
// kept but skipped at flatten time with a warning.
package form

import (
	"fmt"
	"math"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// Kind tags a field variant.
type Kind string

const (
	TextField  Kind = "text"
	CheckBox   Kind = "checkbox"
	RadioGroup Kind = "radio"
)

// Field is one fillable form field.
type Field struct {
	Name    string    // partial field name (/T)
	Kind    Kind      // variant tag
	Page    int       // source page index the widget sits on, -1 when unknown
	Rect    geom.Rect // widget rectangle in document space, zero when unknown
	Value   string    // text content or selected radio option
	Checked bool      // checkbox state
	Options []string  // radio options when discoverable
}

// hasValue reports whether flattening this field would draw anything.
func (f *Field) hasValue() bool {
	switch f.Kind {
	case CheckBox:
		return f.Checked
	default:
		return f.Value != ""
	}
}

// Form is the fillable-field set of one document.
type Form struct {
	fields    []*Field
	flattened bool
}

// New builds a form from explicit fields, mainly for callers that already
// know the field layout. Page -1 marks a field without a page binding.
func New(fields ...Field) *Form {
	f := &Form{}
	for i := range fields {
		fld := fields[i]
		f.fields = append(f.fields, &fld)
	}
	return f
}

// Fields returns a copy of the current field set in discovery order.
func (f *Form) Fields() []Field {
	out := make([]Field, len(f.fields))
	for i, fld := range f.fields {
		out[i] = *fld
	}
	return out
}

// Len reports the number of fields.
func (f *Form) Len() int { return len(f.fields) }

// Flattened reports whether the form has been turned into static content.
func (f *Form) Flattened() bool { return f.flattened }

// truthy interprets the strings callers send for checkbox state.
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1", "checked":
		return true
	}
	return false
}

// Fill sets the named field's value and reports whether a field matched.
// The name resolves in fixed try-order: text fields first, then checkboxes,
// then radio groups. A flattened form refuses all fills.
func (f *Form) Fill(name, value string) bool {
	if f.flattened {
		return false
	}
	for _, kind := range []Kind{TextField, CheckBox, RadioGroup} {
		for _, fld := range f.fields {
			if fld.Name != name || fld.Kind != kind {
				continue
			}
			switch kind {
			case TextField:
				fld.Value = value
			case CheckBox:
				fld.Checked = truthy(value)
			case RadioGroup:
				fld.Value = value
			}
			return true
		}
	}
	return false
}

// Flatten draws every field value as static content and retires the form.
// Irreversible: values become page draws and later fills are refused.
// Fields without a resolvable page or widget rectangle are skipped with a
// warning; the returned warnings are non-fatal.
func (f *Form) Flatten(doc *pdfdoc.Document) ([]string, error) {
	if doc == nil {
		return nil, docerr.New(docerr.Validation, "no document to flatten onto")
	}
	if f.flattened {
		return nil, nil
	}

	var warnings []string
	for _, fld := range f.fields {
		if !fld.hasValue() {
			continue
		}
		page := pageForSource(doc, fld.Page)
		if page < 0 {
			warnings = append(warnings, fmt.Sprintf("form field %q not flattened: page binding unknown", fld.Name))
			continue
		}
		if fld.Rect.W <= 0 || fld.Rect.H <= 0 {
			warnings = append(warnings, fmt.Sprintf("form field %q not flattened: no widget rectangle", fld.Name))
			continue
		}
		if err := drawField(doc, page, fld); err != nil {
			return warnings, err
		}
	}
	f.flattened = true
	return warnings, nil
}

// pageForSource finds the current index of the page that carries the given
// source page, or -1 when it was deleted or never known.
func pageForSource(doc *pdfdoc.Document, src int) int {
	if src < 0 {
		return -1
	}
	for i := 0; i < doc.PageCount(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			return -1
		}
		if p.SourceIndex() == src {
			return i
		}
	}
	return -1
}

func drawField(doc *pdfdoc.Document, page int, fld *Field) error {
	r := fld.Rect
	switch fld.Kind {
	case CheckBox:
		return doc.Draw(page, pdfdoc.TextOp{
			Text:  "X",
			At:    geom.Point{X: r.X + r.W*0.25, Y: r.Y + r.H*0.2},
			Font:  pdfdoc.HelveticaBold,
			Size:  r.H * 0.8,
			Alpha: 1,
		})
	default:
		size := math.Min(10, r.H*0.8)
		return doc.Draw(page, pdfdoc.TextOp{
			Text:  fld.Value,
			At:    geom.Point{X: r.X + 2, Y: r.Y + r.H*0.25},
			Font:  pdfdoc.Helvetica,
			Size:  size,
			Alpha: 1,
		})
	}
}
