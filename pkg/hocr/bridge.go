package hocr

import (
	"math"
	"sort"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// PageSource pairs one page's recognition result with the bitmap geometry
// it was recognized from.
type PageSource struct {
	Result  *ocr.Result
	RasterW int
	RasterH int
	Image   string // source image reference for the page title
}

// FromResults builds an hOCR document from normalized recognition results,
// one page per source. Word boxes come from the raw pixel polygons, so the
// generated bbox values are image coordinates as the format requires.
// Element IDs are left empty; Generate synthesizes them.
func FromResults(title string, sources []PageSource) *Document {
	doc := &Document{
		Title:    title,
		System:   "doctools",
		Metadata: make(map[string]string),
	}

	langs := make(map[string]bool)
	for _, src := range sources {
		page := pageFromResult(src)
		if page.Lang != "" {
			langs[page.Lang] = true
			if doc.Language == "" {
				doc.Language = page.Lang
			}
		}
		doc.Pages = append(doc.Pages, page)
	}

	if len(langs) > 0 {
		list := make([]string, 0, len(langs))
		for lang := range langs {
			list = append(list, lang)
		}
		sort.Strings(list)
		doc.Metadata["ocr-langs"] = strings.Join(list, ", ")
	}
	return doc
}

// ToResult converts a parsed hOCR page into the normalized recognition
// model, mapping pixel boxes into document space through the given
// coordinate mapping. Words without a usable bbox are dropped; the page
// text keeps the hOCR line structure.
func ToResult(page Page, space geom.Space, pageIndex int) *ocr.Result {
	res := &ocr.Result{
		PageIndex: pageIndex,
		Language:  page.Lang,
		Text:      strings.TrimRight(page.PlainText(), "\n"),
	}

	for _, area := range page.Areas {
		var block ocr.Block
		for _, par := range area.Paragraphs {
			if p := toParagraph(par, space); len(p.Words) > 0 {
				block.Paragraphs = append(block.Paragraphs, p)
			}
		}
		if extra := linesToParagraph(area.Lines, area.Words, space); len(extra.Words) > 0 {
			block.Paragraphs = append(block.Paragraphs, extra)
		}
		if len(block.Paragraphs) > 0 {
			block.Finalize()
			res.Blocks = append(res.Blocks, block)
		}
	}

	// Elements parked directly on the page form one trailing block.
	var loose ocr.Block
	for _, par := range page.Paragraphs {
		if p := toParagraph(par, space); len(p.Words) > 0 {
			loose.Paragraphs = append(loose.Paragraphs, p)
		}
	}
	if extra := linesToParagraph(page.Lines, nil, space); len(extra.Words) > 0 {
		loose.Paragraphs = append(loose.Paragraphs, extra)
	}
	if len(loose.Paragraphs) > 0 {
		loose.Finalize()
		res.Blocks = append(res.Blocks, loose)
	}

	res.Confidence = ocr.MeanConfidence(res.Words())
	return res
}

func pageFromResult(src PageSource) Page {
	res := src.Result
	page := Page{
		Number: res.PageIndex,
		Image:  src.Image,
		Lang:   res.Language,
		BBox:   BBox{X2: float64(src.RasterW), Y2: float64(src.RasterH)},
	}

	for _, block := range res.Blocks {
		var area Area
		var areaBox *BBox
		for _, bpar := range block.Paragraphs {
			var par Paragraph
			var parBox *BBox
			for _, lineWords := range ocr.GroupLines(bpar.Words) {
				var line Line
				var lineBox *BBox
				for _, w := range lineWords {
					wb := wordPixelBox(w)
					line.Words = append(line.Words, Word{
						Text:       w.Text,
						Confidence: w.Confidence * 100,
						BBox:       wb,
					})
					lineBox = growBBox(lineBox, wb)
				}
				if lineBox != nil {
					line.BBox = *lineBox
					parBox = growBBox(parBox, *lineBox)
				}
				par.Lines = append(par.Lines, line)
			}
			if parBox != nil {
				par.BBox = *parBox
				areaBox = growBBox(areaBox, *parBox)
			}
			area.Paragraphs = append(area.Paragraphs, par)
		}
		if areaBox != nil {
			area.BBox = *areaBox
		}
		page.Areas = append(page.Areas, area)
	}
	return page
}

func toParagraph(par Paragraph, space geom.Space) ocr.Paragraph {
	var p ocr.Paragraph
	for _, line := range par.Lines {
		p.Words = append(p.Words, toWords(line.Words, space)...)
	}
	p.Words = append(p.Words, toWords(par.Words, space)...)
	p.Finalize()
	return p
}

func linesToParagraph(lines []Line, words []Word, space geom.Space) ocr.Paragraph {
	var p ocr.Paragraph
	for _, line := range lines {
		p.Words = append(p.Words, toWords(line.Words, space)...)
	}
	p.Words = append(p.Words, toWords(words, space)...)
	p.Finalize()
	return p
}

func toWords(words []Word, space geom.Space) []ocr.Word {
	var out []ocr.Word
	for _, w := range words {
		if w.BBox.Empty() {
			continue
		}
		poly := []geom.PixelPoint{
			{X: w.BBox.X1, Y: w.BBox.Y1},
			{X: w.BBox.X2, Y: w.BBox.Y1},
			{X: w.BBox.X2, Y: w.BBox.Y2},
			{X: w.BBox.X1, Y: w.BBox.Y2},
		}
		conf := w.Confidence / 100
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, ocr.Word{
			Text:       w.Text,
			Confidence: conf,
			Polygon:    poly,
			Box:        geom.BoundsOf(space.PolygonToDocument(poly)),
		})
	}
	return out
}

func wordPixelBox(w ocr.Word) BBox {
	min, max := geom.PixelBoundsOf(w.Polygon)
	return BBox{X1: min.X, Y1: min.Y, X2: max.X, Y2: max.Y}
}

func growBBox(acc *BBox, b BBox) *BBox {
	if acc == nil {
		out := b
		return &out
	}
	acc.X1 = math.Min(acc.X1, b.X1)
	acc.Y1 = math.Min(acc.Y1, b.Y1)
	acc.X2 = math.Max(acc.X2, b.X2)
	acc.Y2 = math.Max(acc.Y2, b.Y2)
	return acc
}
