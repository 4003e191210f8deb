package pdfdoc

import (
	"sort"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// Blank pages inserted into a document use A4 geometry.
const (
	A4Width  = 595.0
	A4Height = 842.0
)

// Page is one page of a Document: its geometry in points, its rotation and
// the z-ordered draw operations queued against it. Pages are mutated only
// through their Document.
type Page struct {
	w        float64
	h        float64
	rotation int
	srcIndex int // page in the source bytes, -1 for inserted blanks
	ops      []DrawOp
	layer    *ocrLayer
}

// Width returns the page width in points.
func (p *Page) Width() float64 { return p.w }

// Height returns the page height in points.
func (p *Page) Height() float64 { return p.h }

// Rotation returns the accumulated page rotation, one of 0, 90, 180, 270.
func (p *Page) Rotation() int { return p.rotation }

// SourceIndex returns the zero-based page of the source bytes this page
// renders, or -1 for an inserted blank.
func (p *Page) SourceIndex() int { return p.srcIndex }

// Ops returns the page's queued draw operations in call order.
func (p *Page) Ops() []DrawOp { return p.ops }

func (p *Page) clone() *Page {
	c := &Page{w: p.w, h: p.h, rotation: p.rotation, srcIndex: p.srcIndex}
	c.ops = append([]DrawOp(nil), p.ops...)
	if p.layer != nil {
		l := &ocrLayer{cfg: p.layer.cfg}
		l.words = append([]ocr.Word(nil), p.layer.words...)
		c.layer = l
	}
	return c
}

// PageCount returns the number of pages currently in the document.
func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the page at the zero-based index.
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, docerr.Newf(docerr.Validation,
			"page index %d out of range [0,%d)", index, len(d.pages))
	}
	return d.pages[index], nil
}

// RotatePage adds a rotation delta to the page. The delta must be a
// multiple of 90 degrees; the accumulated rotation normalizes into
// {0, 90, 180, 270}.
func (d *Document) RotatePage(index, delta int) error {
	p, err := d.Page(index)
	if err != nil {
		return err
	}
	if delta%90 != 0 {
		return docerr.Newf(docerr.Validation,
			"rotation must be a multiple of 90 degrees, got %d", delta)
	}
	p.rotation = ((p.rotation+delta)%360 + 360) % 360
	return nil
}

// DeletePages removes the pages at the given zero-based indices. Indices
// are validated up front and then removed in descending order within this
// one call, so earlier removals never invalidate later ones. Removing every
// page is refused; a document always keeps at least one page.
func (d *Document) DeletePages(indices []int) error {
	if len(indices) == 0 {
		return docerr.New(docerr.Validation, "no pages given to delete")
	}
	unique := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(d.pages) {
			return docerr.Newf(docerr.Validation,
				"page index %d out of range [0,%d)", i, len(d.pages))
		}
		unique[i] = true
	}
	if len(unique) >= len(d.pages) {
		return docerr.New(docerr.Validation, "cannot delete every page of the document")
	}

	desc := make([]int, 0, len(unique))
	for i := range unique {
		desc = append(desc, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(desc)))
	for _, i := range desc {
		d.pages = append(d.pages[:i], d.pages[i+1:]...)
	}
	return nil
}

// Reorder rebuilds the document with its pages in the given order. The
// order must be a full permutation of the current page indices: page N of
// the result is the page previously at order[N].
func (d *Document) Reorder(order []int) error {
	if len(order) != len(d.pages) {
		return docerr.Newf(docerr.Validation,
			"reorder length %d does not match page count %d", len(order), len(d.pages))
	}
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(d.pages) {
			return docerr.Newf(docerr.Validation,
				"page index %d out of range [0,%d)", i, len(d.pages))
		}
		if seen[i] {
			return docerr.Newf(docerr.Validation, "page index %d repeated in reorder", i)
		}
		seen[i] = true
	}

	pages := make([]*Page, len(order))
	for n, i := range order {
		pages[n] = d.pages[i]
	}
	d.pages = pages
	return nil
}

// Extract builds a new document containing only the given pages, in the
// given order. The source document is left untouched; repeated indices are
// allowed and duplicate the page.
func (d *Document) Extract(indices []int) (*Document, error) {
	if len(indices) == 0 {
		return nil, docerr.New(docerr.Validation, "no pages given to extract")
	}
	pages := make([]*Page, len(indices))
	for n, i := range indices {
		if i < 0 || i >= len(d.pages) {
			return nil, docerr.Newf(docerr.Validation,
				"page index %d out of range [0,%d)", i, len(d.pages))
		}
		pages[n] = d.pages[i].clone()
	}
	return &Document{src: d.src, pages: pages}, nil
}

// InsertBlank inserts an empty A4 page after the given zero-based index.
// An index of -1 inserts at the front of the document.
func (d *Document) InsertBlank(after int) error {
	if after < -1 || after >= len(d.pages) {
		return docerr.Newf(docerr.Validation,
			"insert position %d out of range [-1,%d)", after, len(d.pages))
	}
	pos := after + 1
	page := &Page{w: A4Width, h: A4Height, srcIndex: -1}
	d.pages = append(d.pages[:pos], append([]*Page{page}, d.pages[pos:]...)...)
	return nil
}
