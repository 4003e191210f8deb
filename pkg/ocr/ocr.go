// Package ocr defines the internal recognition model every engine
// normalizes into, and the Engine interface the batch orchestrator drives.
//
// Upstream recognition services all report text in their own schema. Each
// engine converts its vendor response into the Word/Paragraph/Block
// hierarchy at the client boundary, so downstream code never branches on a
// vendor's native shape:
//
//   - Word: recognized text with a confidence in [0,1], the raw bounding
//     polygon in raster pixels, and a derived, immutable document-space
//     bounding box.
//   - Paragraph and Block aggregate their children; an aggregate's
//     confidence is the mean of its children's positive confidences, or 0
//     when no child reports one.
//
// Word order inside an aggregate is deterministic reading order (see
// SortReadingOrder); it never depends on the order the upstream service
// happened to emit.
package ocr

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
)

// Word is a single recognized word.
type Word struct {
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"` // 0..1
	Polygon    []geom.PixelPoint `json:"polygon"`    // >=4 vertices, raster pixels
	Box        geom.Rect         `json:"box"`        // derived document-space bounds
}

// Paragraph aggregates the words of one paragraph.
type Paragraph struct {
	Words      []Word    `json:"words"`
	Confidence float64   `json:"confidence"`
	Box        geom.Rect `json:"box"`
}

// Block aggregates the paragraphs of one layout block.
type Block struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	Confidence float64     `json:"confidence"`
	Box        geom.Rect   `json:"box"`
}

// Result is the normalized outcome of recognizing one page bitmap. A page
// with no text is a successful empty result, not an error.
type Result struct {
	PageIndex  int                    `json:"pageIndex"`
	Text       string                 `json:"text"`
	Blocks     []Block                `json:"blocks"`
	Confidence float64                `json:"confidence"`           // mean word confidence
	Language   string                 `json:"language,omitempty"`   // dominant detected language
	FormFields map[string]interface{} `json:"formFields,omitempty"` // detected key/value pairs
	Entities   map[string]interface{} `json:"entities,omitempty"`   // extractor entities, engine dependent
}

// Input is one page bitmap handed to an engine, together with the geometry
// needed to map results into document space.
type Input struct {
	Image         []byte   // encoded bitmap
	MIMEType      string   // e.g. "image/png"
	PageIndex     int      // zero-based page the bitmap was rendered from
	LanguageHints []string // BCP-47 hints passed through to the engine
	RasterW       int      // bitmap width in pixels
	RasterH       int      // bitmap height in pixels
	PageW         float64  // page width in points
	PageH         float64  // page height in points
}

// Engine is implemented by every recognition backend. Recognize performs
// exactly one upstream call per bitmap and never retries internally; retry
// policy belongs to the batch orchestrator at page granularity.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (*Result, error)
}

// Words returns every word of the result in reading order.
func (r *Result) Words() []Word {
	var out []Word
	for _, b := range r.Blocks {
		for _, p := range b.Paragraphs {
			out = append(out, p.Words...)
		}
	}
	return out
}

// Paragraphs returns every paragraph of the result.
func (r *Result) Paragraphs() []Paragraph {
	var out []Paragraph
	for _, b := range r.Blocks {
		out = append(out, b.Paragraphs...)
	}
	return out
}

// Finalize derives the paragraph's confidence and document-space bounds
// from its words, which must already be in reading order.
func (p *Paragraph) Finalize() {
	confs := make([]float64, 0, len(p.Words))
	boxes := make([]geom.Rect, 0, len(p.Words))
	for _, w := range p.Words {
		confs = append(confs, w.Confidence)
		boxes = append(boxes, w.Box)
	}
	p.Confidence = meanPositive(confs)
	p.Box = unionRects(boxes)
}

// Finalize derives the block's confidence and bounds from its paragraphs.
func (b *Block) Finalize() {
	confs := make([]float64, 0, len(b.Paragraphs))
	boxes := make([]geom.Rect, 0, len(b.Paragraphs))
	for _, p := range b.Paragraphs {
		confs = append(confs, p.Confidence)
		boxes = append(boxes, p.Box)
	}
	b.Confidence = meanPositive(confs)
	b.Box = unionRects(boxes)
}

// MeanConfidence computes the page-level confidence over a word set: the
// mean of positive word confidences, or 0 when no word reports one.
func MeanConfidence(words []Word) float64 {
	confs := make([]float64, 0, len(words))
	for _, w := range words {
		confs = append(confs, w.Confidence)
	}
	return meanPositive(confs)
}

func meanPositive(vals []float64) float64 {
	sum := 0.0
	n := 0
	for _, v := range vals {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func unionRects(rects []geom.Rect) geom.Rect {
	if len(rects) == 0 {
		return geom.Rect{}
	}
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].Right(), rects[0].Top()
	for _, r := range rects[1:] {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Top())
	}
	return geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// GroupLines clusters words into visual lines. A word joins a line when its
// box overlaps the line's seed word vertically by at least half the smaller
// height. Lines come out top to bottom; words within a line left to right,
// with the higher word first when two share a left edge. The grouping is a
// pure function of the boxes, so two words with overlapping boxes always
// order the same way regardless of upstream arrival order.
func GroupLines(words []Word) [][]Word {
	if len(words) == 0 {
		return nil
	}

	ws := append([]Word(nil), words...)
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Box.Top() != ws[j].Box.Top() {
			return ws[i].Box.Top() > ws[j].Box.Top()
		}
		return ws[i].Box.X < ws[j].Box.X
	})

	var lines [][]Word
	var seeds []geom.Rect
	for _, w := range ws {
		placed := false
		for i, seed := range seeds {
			if sameLine(seed, w.Box) {
				lines[i] = append(lines[i], w)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []Word{w})
			seeds = append(seeds, w.Box)
		}
	}

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			if line[i].Box.X != line[j].Box.X {
				return line[i].Box.X < line[j].Box.X
			}
			return line[i].Box.Top() > line[j].Box.Top()
		})
	}
	return lines
}

// SortReadingOrder returns the words ordered top-to-bottom by line and left
// to right within a line.
func SortReadingOrder(words []Word) []Word {
	lines := GroupLines(words)
	out := make([]Word, 0, len(words))
	for _, line := range lines {
		out = append(out, line...)
	}
	return out
}

// TextFromWords assembles plain text from a word set: words joined by
// spaces, lines by newlines.
func TextFromWords(words []Word) string {
	lines := GroupLines(words)
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		for j, w := range line {
			if j > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(w.Text)
		}
	}
	return sb.String()
}

func sameLine(a, b geom.Rect) bool {
	top := math.Min(a.Top(), b.Top())
	bottom := math.Max(a.Y, b.Y)
	overlap := top - bottom
	if overlap <= 0 {
		return false
	}
	return overlap >= math.Min(a.H, b.H)/2
}
