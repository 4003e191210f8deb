// Package pdfdoc provides the mutable document handle every edit and OCR
// operation in the engine works against.
//
// A Document is loaded from PDF bytes, mutated in memory and serialized
// exactly once at the end of a request. Because PDF content streams are
// effectively immutable, "editing" means queueing overlay draw operations
// on top of imported source pages: an opaque fill covers old content, new
// content is drawn above it. The queue keeps call order, so a caller that
// covers first and draws second gets exactly that on the page.
//
// Key Features:
//
// - Load with structural validation; corrupt documents are rejected before any mutation
// - Page management: rotate, delete, reorder, extract, insert blank pages
// - Z-ordered overlay draws: rectangles, text, lines, circles, images
// - Standard-font resolution and width estimation for cover-box sizing
// - Invisible OCR text layers that make scanned pages searchable
// - Detection of existing OCR layers in raw PDF bytes
// - Assembly of fresh documents from page images
//
// Main Entry Points:
//
// - Load: open PDF bytes as a mutable Document
// - NewFromImages: build a Document from page bitmaps
// - Document.Save: serialize the current state to PDF bytes
package pdfdoc

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// Document is an in-memory PDF under edit. One request owns a Document for
// its whole lifetime; it is not safe for concurrent use and is never
// partially persisted.
type Document struct {
	src   []byte // original bytes; source pages are imported from here
	pages []*Page
}

// Load opens PDF bytes as a Document. The bytes are structurally validated
// first: a document that fails validation is rejected whole and never
// partially repaired.
func Load(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, docerr.New(docerr.Validation, "document bytes are empty")
	}

	conf := model.NewDefaultConfiguration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, docerr.Wrap(docerr.PDFCorrupted, "document failed structural validation", err)
	}
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, docerr.Wrap(docerr.PDFCorrupted, "page geometry could not be read", err)
	}
	if len(dims) == 0 {
		return nil, docerr.New(docerr.PDFCorrupted, "document has no pages")
	}

	pages := make([]*Page, len(dims))
	for i, dim := range dims {
		pages[i] = &Page{w: dim.Width, h: dim.Height, srcIndex: i}
	}
	return &Document{src: data, pages: pages}, nil
}

// SourceBytes returns the bytes the document was loaded from, or nil for a
// document assembled from images. Callers must treat them as read-only.
func (d *Document) SourceBytes() []byte { return d.src }
