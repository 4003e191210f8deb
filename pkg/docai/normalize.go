package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// ResultFromProto normalizes a Document AI response for one page bitmap
// into the recognition model. The input supplies the bitmap and page
// geometry used to map bounding polygons into document space. The
// block/paragraph hierarchy is rebuilt from text-anchor intervals; word
// order within a paragraph is deterministic reading order, not arrival
// order.
func ResultFromProto(doc *documentaipb.Document, in ocr.Input) (*ocr.Result, error) {
	res := &ocr.Result{PageIndex: in.PageIndex}
	if doc == nil || len(doc.Pages) == 0 {
		return res, nil
	}

	space, err := geom.NewSpace(float64(in.RasterW), float64(in.RasterH), in.PageW, in.PageH)
	if err != nil {
		return nil, err
	}

	page := doc.Pages[0]
	res.Text = strings.TrimRight(doc.Text, "\n")
	res.Language = dominantLanguage(doc)
	res.FormFields = formFieldsFromProto(doc)
	res.Entities = entitiesFromProto(doc)

	// Normalize every token into a word first, keeping its text interval
	// for the containment checks below.
	type anchoredWord struct {
		word ocr.Word
		span span
	}
	var words []anchoredWord
	for _, token := range page.Tokens {
		sp, ok := spanOf(token.GetLayout())
		if !ok {
			continue
		}
		poly := polygonFromLayout(token.GetLayout(), page.GetDimension(), float64(in.RasterW), float64(in.RasterH))
		if len(poly) < 4 {
			continue
		}
		text := cleanTokenText(token, doc.Text)
		if text == "" {
			continue
		}
		words = append(words, anchoredWord{
			word: ocr.Word{
				Text:       text,
				Confidence: float64(token.GetLayout().GetConfidence()),
				Polygon:    poly,
				Box:        geom.BoundsOf(space.PolygonToDocument(poly)),
			},
			span: sp,
		})
	}

	claimedWords := make([]bool, len(words))
	claimedPars := make([]bool, len(page.Paragraphs))

	paragraphFor := func(parSpan span) ocr.Paragraph {
		var p ocr.Paragraph
		for i, w := range words {
			if !claimedWords[i] && parSpan.contains(w.span) {
				p.Words = append(p.Words, w.word)
				claimedWords[i] = true
			}
		}
		p.Words = ocr.SortReadingOrder(p.Words)
		p.Finalize()
		return p
	}

	for _, protoBlock := range page.Blocks {
		blockSpan, ok := spanOf(protoBlock.GetLayout())
		if !ok {
			continue
		}
		var block ocr.Block
		for pi, protoPar := range page.Paragraphs {
			if claimedPars[pi] {
				continue
			}
			parSpan, ok := spanOf(protoPar.GetLayout())
			if !ok || !blockSpan.contains(parSpan) {
				continue
			}
			claimedPars[pi] = true
			if p := paragraphFor(parSpan); len(p.Words) > 0 {
				block.Paragraphs = append(block.Paragraphs, p)
			}
		}
		if len(block.Paragraphs) > 0 {
			block.Finalize()
			res.Blocks = append(res.Blocks, block)
		}
	}

	// Paragraphs outside every block, then words outside every paragraph,
	// gather into one trailing block so nothing recognized is dropped.
	var trailing ocr.Block
	for pi, protoPar := range page.Paragraphs {
		if claimedPars[pi] {
			continue
		}
		parSpan, ok := spanOf(protoPar.GetLayout())
		if !ok {
			continue
		}
		if p := paragraphFor(parSpan); len(p.Words) > 0 {
			trailing.Paragraphs = append(trailing.Paragraphs, p)
		}
	}
	var orphans ocr.Paragraph
	for i, w := range words {
		if !claimedWords[i] {
			orphans.Words = append(orphans.Words, w.word)
		}
	}
	if len(orphans.Words) > 0 {
		orphans.Words = ocr.SortReadingOrder(orphans.Words)
		orphans.Finalize()
		trailing.Paragraphs = append(trailing.Paragraphs, orphans)
	}
	if len(trailing.Paragraphs) > 0 {
		trailing.Finalize()
		res.Blocks = append(res.Blocks, trailing)
	}

	res.Confidence = ocr.MeanConfidence(res.Words())
	return res, nil
}

// span is one interval into the document text. Containment of these
// intervals is what defines the element hierarchy in the vendor response.
type span struct {
	start int64
	end   int64
}

func (s span) contains(o span) bool {
	return o.start >= s.start && o.end <= s.end
}

func spanOf(layout *documentaipb.Document_Page_Layout) (span, bool) {
	if layout == nil || layout.TextAnchor == nil || len(layout.TextAnchor.TextSegments) == 0 {
		return span{}, false
	}
	seg := layout.TextAnchor.TextSegments[0]
	return span{start: int64(seg.StartIndex), end: int64(seg.EndIndex)}, true
}

// polygonFromLayout scales the layout's bounding polygon onto the submitted
// bitmap. Normalized vertices scale directly; absolute vertices are scaled
// from the service's own page dimension.
func polygonFromLayout(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension, rasterW, rasterH float64) []geom.PixelPoint {
	if layout == nil || layout.BoundingPoly == nil {
		return nil
	}

	if nvs := layout.BoundingPoly.NormalizedVertices; len(nvs) >= 4 {
		poly := make([]geom.PixelPoint, len(nvs))
		for i, v := range nvs {
			poly[i] = geom.PixelPoint{X: float64(v.GetX()) * rasterW, Y: float64(v.GetY()) * rasterH}
		}
		return poly
	}

	vs := layout.BoundingPoly.Vertices
	if len(vs) < 4 || dim.GetWidth() <= 0 || dim.GetHeight() <= 0 {
		return nil
	}
	sx := rasterW / float64(dim.GetWidth())
	sy := rasterH / float64(dim.GetHeight())
	poly := make([]geom.PixelPoint, len(vs))
	for i, v := range vs {
		poly[i] = geom.PixelPoint{X: float64(v.GetX()) * sx, Y: float64(v.GetY()) * sy}
	}
	return poly
}

// dominantLanguage returns the most frequently detected language across
// pages and tokens, ties broken lexically.
func dominantLanguage(doc *documentaipb.Document) string {
	counts := make(map[string]int)
	for _, page := range doc.Pages {
		for _, lang := range page.DetectedLanguages {
			counts[lang.GetLanguageCode()]++
		}
		for _, token := range page.Tokens {
			for _, lang := range token.DetectedLanguages {
				counts[lang.GetLanguageCode()]++
			}
		}
	}

	best := ""
	bestCount := 0
	for lang, n := range counts {
		if lang == "" {
			continue
		}
		if n > bestCount || (n == bestCount && (best == "" || lang < best)) {
			best, bestCount = lang, n
		}
	}
	return best
}
