// Package export turns a finished document and its recognition results
// into the delivery formats: final PDF bytes (optionally compacted),
// plain text, hOCR HTML and per-page bitmaps.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/batch"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/hocr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/raster"
)

// Options control the final serialization.
type Options struct {
	Optimize bool        // run the object/stream compaction pass
	Logger   *log.Logger // nil falls back to the standard logger
}

// optimize is swapped out by tests to exercise the fallback path.
var optimize = Optimize

// Document serializes the document exactly once and, when requested,
// compacts the result. A failed compaction never yields a partial file:
// the unoptimized bytes are returned together with a warning.
func Document(doc *pdfdoc.Document, opts Options) ([]byte, []string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	data, err := doc.Save()
	if err != nil {
		return nil, nil, err
	}
	if !opts.Optimize {
		return data, nil, nil
	}

	out, err := optimize(data)
	if err != nil {
		logger.Printf("optimization failed, keeping unoptimized output: %v", err)
		return data, []string{"optimization failed, document exported unoptimized"}, nil
	}
	return out, nil, nil
}

// Optimize rewrites the document through the object and stream compaction
// pass. Unlike Document it is strict: a document the optimizer cannot
// process is an error.
func Optimize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, docerr.New(docerr.Validation, "document bytes are empty")
	}

	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := api.Optimize(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, docerr.Wrap(docerr.PDFCorrupted, "document optimization failed", err)
	}
	return buf.Bytes(), nil
}

// PlainText joins the recognized text of every processed page in ascending
// page order, pages separated by a blank line. Failed and empty pages
// contribute nothing.
func PlainText(res *batch.Result) string {
	if res == nil {
		return ""
	}

	pages := sortedPages(res)
	var sb strings.Builder
	for _, p := range pages {
		if p.Result == nil {
			continue
		}
		text := strings.TrimSpace(p.Result.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// HOCR renders batch results as an hOCR HTML document, one ocr_page per
// processed page in ascending page order.
func HOCR(title string, res *batch.Result) string {
	var sources []hocr.PageSource
	if res != nil {
		for _, p := range sortedPages(res) {
			if p.Result == nil {
				continue
			}
			sources = append(sources, hocr.PageSource{
				Result:  p.Result,
				RasterW: p.RasterW,
				RasterH: p.RasterH,
				Image:   fmt.Sprintf("page_%d.png", p.PageIndex+1),
			})
		}
	}
	return hocr.Generate(hocr.FromResults(title, sources))
}

// PageImages renders the given pages of a serialized document to PNG
// frames at the given density. It fails on the first page that cannot be
// rendered.
func PageImages(ctx context.Context, renderer raster.Renderer, pdf []byte, pages []int, scale float64) ([]*raster.Frame, error) {
	if renderer == nil {
		return nil, docerr.New(docerr.Validation, "renderer is required")
	}
	if scale <= 0 {
		scale = raster.DefaultScale
	}

	frames := make([]*raster.Frame, 0, len(pages))
	for _, idx := range pages {
		frame, err := renderer.RenderPage(ctx, pdf, idx, scale)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func sortedPages(res *batch.Result) []batch.PageOutcome {
	pages := append([]batch.PageOutcome(nil), res.Pages...)
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageIndex < pages[j].PageIndex })
	return pages
}
