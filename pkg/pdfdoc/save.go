package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"golang.org/x/text/encoding/charmap"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
)

// Save serializes the document's current state: source pages are imported
// in their current order, rotations applied, queued draws rendered in call
// order and OCR layers added on top. A quarter-turn rotation swaps the
// written page box so the rotated content fits it exactly; queued draws and
// the text layer are rendered inside the same transform, so overlays keep
// their position relative to the content they were placed on. Save either
// returns complete bytes or an error with no output; there is no partial
// serialization.
func (d *Document) Save() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, docerr.New(docerr.Validation, "document has no pages to serialize")
	}

	pdf := fpdf.New("P", "pt", "", "")
	var importer *gofpdi.Importer
	var rs io.ReadSeeker
	if len(d.src) > 0 {
		importer = gofpdi.NewImporter()
		rs = bytes.NewReader(d.src)
	}

	for i, page := range d.pages {
		pageNo := i + 1
		outW, outH := page.w, page.h
		if page.rotation == 90 || page.rotation == 270 {
			outW, outH = page.h, page.w
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: outW, Ht: outH})

		if page.rotation != 0 {
			// Page rotation is clockwise like a PDF /Rotate entry; the
			// writer rotates counter-clockwise. Each quarter turn is the
			// inverse rotation about the origin plus a translation into the
			// swapped page box.
			pdf.TransformBegin()
			switch page.rotation {
			case 90:
				pdf.TransformTranslate(page.h, 0)
				pdf.TransformRotate(-90, 0, 0)
			case 180:
				pdf.TransformRotate(-180, page.w/2, page.h/2)
			case 270:
				pdf.TransformTranslate(0, page.w)
				pdf.TransformRotate(90, 0, 0)
			}
		}

		if page.srcIndex >= 0 {
			if importer == nil {
				return nil, docerr.Newf(docerr.Validation,
					"page %d references source content but the document has none", i)
			}
			tpl := importer.ImportPageFromStream(pdf, &rs, page.srcIndex+1, "/MediaBox")
			importer.UseImportedTemplate(pdf, tpl, 0, 0, page.w, 0)
		}

		w := &pageWriter{pdf: pdf, pageH: page.h, pageNo: pageNo}
		for opIdx, op := range page.ops {
			w.opIndex = opIdx
			if err := w.render(op); err != nil {
				return nil, err
			}
		}

		if page.layer != nil && len(page.layer.words) > 0 {
			if err := renderOCRLayer(pdf, page, pageNo); err != nil {
				return nil, err
			}
		}

		if page.rotation != 0 {
			pdf.TransformEnd()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// pageWriter renders queued ops onto the current writer page, converting
// document-space coordinates into the writer's top-left, Y-down space.
type pageWriter struct {
	pdf     *fpdf.Fpdf
	pageH   float64
	pageNo  int
	opIndex int
}

func (w *pageWriter) render(op DrawOp) error {
	switch v := op.(type) {
	case FillRectOp:
		x, y, rw, rh := geom.DocumentToCanvas(v.Rect, w.pageH)
		w.withAlpha(v.Alpha, func() {
			w.pdf.SetFillColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
			w.pdf.Rect(x, y, rw, rh, "F")
		})
	case StrokeRectOp:
		x, y, rw, rh := geom.DocumentToCanvas(v.Rect, w.pageH)
		w.pdf.SetDrawColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
		w.setLineWidth(v.Width)
		w.pdf.Rect(x, y, rw, rh, "D")
	case TextOp:
		w.withAlpha(v.Alpha, func() {
			w.pdf.SetFont(v.Font.family, v.Font.style, v.Size)
			w.pdf.SetTextColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
			text, _ := encodeText(v.Text)
			w.pdf.Text(v.At.X, w.pageH-v.At.Y, text)
		})
	case LineOp:
		w.pdf.SetDrawColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
		w.setLineWidth(v.Width)
		w.pdf.Line(v.From.X, w.pageH-v.From.Y, v.To.X, w.pageH-v.To.Y)
	case CircleOp:
		style := "D"
		if v.Fill {
			w.pdf.SetFillColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
			style = "F"
		} else {
			w.pdf.SetDrawColor(int(v.Color.R), int(v.Color.G), int(v.Color.B))
			w.setLineWidth(v.Width)
		}
		w.pdf.Circle(v.Center.X, w.pageH-v.Center.Y, v.Radius, style)
	case ImageOp:
		x, y, rw, rh := geom.DocumentToCanvas(v.Rect, w.pageH)
		format := v.format
		if format == "" {
			var err error
			if format, err = sniffImageFormat(v.Data); err != nil {
				return err
			}
		}
		name := fmt.Sprintf("img_%d_%d", w.pageNo, w.opIndex)
		opts := fpdf.ImageOptions{ImageType: format, ReadDpi: false}
		w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(v.Data))
		w.pdf.ImageOptions(name, x, y, rw, rh, false, opts, 0, "")
	default:
		return docerr.Newf(docerr.Validation, "unsupported draw operation %T", op)
	}
	return nil
}

func (w *pageWriter) withAlpha(alpha float64, draw func()) {
	if alpha < 1 {
		w.pdf.SetAlpha(alpha, "Normal")
		defer w.pdf.SetAlpha(1, "Normal")
	}
	draw()
}

func (w *pageWriter) setLineWidth(width float64) {
	if width > 0 {
		w.pdf.SetLineWidth(width)
	}
}

// encodeText converts text to ISO-8859-1 for the standard fonts. Characters
// outside the charset leave the raw text in place; the false return lets
// callers count the miss.
func encodeText(s string) (string, bool) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s, false
	}
	return latin1, true
}
