package edit

import (
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// FillFormField sets one form field by name. Unmatched names are skipped
// with a warning, never an error. After the form-fill rank runs, the form is
// flattened: values become static page content and interactivity is gone.
type FillFormField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (FillFormField) rank() int { return rankFormFill }

func (op FillFormField) validate(doc *pdfdoc.Document) error {
	if strings.TrimSpace(op.Field) == "" {
		return docerr.New(docerr.Validation, "form fill names no field")
	}
	return nil
}

func (op FillFormField) apply(st *state) error {
	st.fills++
	if st.form == nil {
		st.warnf("form field %q skipped: document has no fillable form", op.Field)
		return nil
	}
	if !st.form.Fill(op.Field, op.Value) {
		st.warnf("form field %q not found, skipped", op.Field)
	}
	return nil
}
