package edit

import (
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
)

// Rotate turns one page by a clockwise delta, a multiple of 90 degrees.
// Deltas accumulate across operations and normalize into {0, 90, 180, 270}.
type Rotate struct {
	Page  int `json:"pageIndex"`
	Angle int `json:"angle"`
}

func (Rotate) rank() int { return rankRotate }

func (op Rotate) validate(doc *pdfdoc.Document) error {
	if _, err := doc.Page(op.Page); err != nil {
		return err
	}
	if op.Angle%90 != 0 {
		return docerr.Newf(docerr.Validation,
			"rotation on page %d must be a multiple of 90, got %d", op.Page, op.Angle)
	}
	return nil
}

func (op Rotate) apply(st *state) error {
	return st.doc.RotatePage(op.Page, op.Angle)
}

// PageDelete removes pages by as-loaded index. All PageDelete operations in
// one edit set merge into a single removal, so every index refers to the
// document before any deletion.
type PageDelete struct {
	Indices []int `json:"pageIndices"`
}

func (PageDelete) rank() int { return rankPageDelete }

func (op PageDelete) validate(doc *pdfdoc.Document) error {
	if len(op.Indices) == 0 {
		return docerr.New(docerr.Validation, "page deletion names no pages")
	}
	for _, i := range op.Indices {
		if _, err := doc.Page(i); err != nil {
			return err
		}
	}
	return nil
}

func (op PageDelete) apply(st *state) error {
	return st.doc.DeletePages(op.Indices)
}

// PageReorder rearranges the whole document: output page n becomes input
// page Order[n]. Order must be a full permutation of the current pages.
type PageReorder struct {
	Order []int `json:"order"`
}

func (PageReorder) rank() int { return rankRestructure }

func (op PageReorder) validate(doc *pdfdoc.Document) error {
	if len(op.Order) != doc.PageCount() {
		return docerr.Newf(docerr.Validation,
			"reorder names %d pages, document has %d", len(op.Order), doc.PageCount())
	}
	return nil
}

func (op PageReorder) apply(st *state) error {
	return st.doc.Reorder(op.Order)
}

// PageExtract replaces the document with just the named pages, in the given
// order. Indices may repeat to duplicate a page.
type PageExtract struct {
	Indices []int `json:"pageIndices"`
}

func (PageExtract) rank() int { return rankRestructure }

func (op PageExtract) validate(doc *pdfdoc.Document) error {
	if len(op.Indices) == 0 {
		return docerr.New(docerr.Validation, "extraction names no pages")
	}
	for _, i := range op.Indices {
		if _, err := doc.Page(i); err != nil {
			return err
		}
	}
	return nil
}

func (op PageExtract) apply(st *state) error {
	sub, err := st.doc.Extract(op.Indices)
	if err != nil {
		return err
	}
	*st.doc = *sub
	return nil
}

// PageInsert adds a blank A4 page after the given index; -1 inserts at the
// front. The index refers to the layout at the operation's turn, after
// structural edits of lower ranks.
type PageInsert struct {
	After int `json:"insertAfter"`
}

func (PageInsert) rank() int { return rankInsert }

func (op PageInsert) validate(doc *pdfdoc.Document) error {
	if op.After < -1 || op.After >= doc.PageCount() {
		return docerr.Newf(docerr.Validation,
			"insert position %d out of range for %d pages", op.After, doc.PageCount())
	}
	return nil
}

func (op PageInsert) apply(st *state) error {
	return st.doc.InsertBlank(op.After)
}
