// Package tessocr integrates the Tesseract engine through gosseract as a
// local, offline recognition backend.
//
// Tesseract reports word geometry as pixel rectangles rather than
// polygons, and it does not expose block or paragraph structure at the
// word level, so results come back as a single block with one paragraph
// of words in reading order. Language hints use BCP-47 codes at the API
// boundary and are translated to Tesseract's ISO 639-2 codes here.
package tessocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// Config selects the trained language data the engine loads.
type Config struct {
	// Languages holds Tesseract language codes, e.g. "eng", "deu".
	// Per-call BCP-47 hints on the input override these.
	Languages []string
}

// DefaultConfig returns a Config for English recognition.
func DefaultConfig() Config {
	return Config{Languages: []string{"eng"}}
}

// Engine runs OCR in-process through the Tesseract library. One engine
// wraps one gosseract client and is not safe for concurrent Recognize
// calls, which matches the sequential page loop driving it.
type Engine struct {
	cfg    Config
	client *gosseract.Client
}

// New creates an engine with the configured languages loaded.
func New(cfg Config) (*Engine, error) {
	client := gosseract.NewClient()
	if len(cfg.Languages) > 0 {
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tesseract languages: %w", err)
		}
	}
	return &Engine{cfg: cfg, client: client}, nil
}

// Name identifies the engine in logs and results.
func (e *Engine) Name() string { return "tesseract" }

// Close releases the underlying Tesseract client.
func (e *Engine) Close() error { return e.client.Close() }

// Recognize runs Tesseract over one page bitmap. The Tesseract call
// itself cannot be interrupted; cancellation is honored between steps and
// the caller discards results that arrive after its deadline.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	if len(in.Image) == 0 {
		return nil, docerr.New(docerr.Validation, "recognition input has no image data").OnPage(in.PageIndex)
	}
	if err := ctx.Err(); err != nil {
		return nil, docerr.Classify(err).OnPage(in.PageIndex)
	}

	space, err := geom.NewSpace(float64(in.RasterW), float64(in.RasterH), in.PageW, in.PageH)
	if err != nil {
		return nil, err
	}

	if langs := tessLangs(in.LanguageHints); len(langs) > 0 {
		if err := e.client.SetLanguage(langs...); err != nil {
			return nil, docerr.Wrap(docerr.RecognitionFailed, "text recognition failed", err).OnPage(in.PageIndex)
		}
	}
	if err := e.client.SetImageFromBytes(in.Image); err != nil {
		return nil, docerr.Wrap(docerr.InvalidImage, "image data could not be decoded", err).OnPage(in.PageIndex)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, docerr.Wrap(docerr.RecognitionFailed, "text recognition failed", err).OnPage(in.PageIndex)
	}

	var words []ocr.Word
	for _, bb := range boxes {
		text := strings.TrimSpace(bb.Word)
		if text == "" {
			continue
		}
		r := bb.Box
		poly := []geom.PixelPoint{
			{X: float64(r.Min.X), Y: float64(r.Min.Y)},
			{X: float64(r.Max.X), Y: float64(r.Min.Y)},
			{X: float64(r.Max.X), Y: float64(r.Max.Y)},
			{X: float64(r.Min.X), Y: float64(r.Max.Y)},
		}
		conf := bb.Confidence / 100
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		words = append(words, ocr.Word{
			Text:       text,
			Confidence: conf,
			Polygon:    poly,
			Box:        geom.BoundsOf(space.PolygonToDocument(poly)),
		})
	}

	res := &ocr.Result{PageIndex: in.PageIndex}
	if len(words) == 0 {
		return res, nil
	}

	par := ocr.Paragraph{Words: ocr.SortReadingOrder(words)}
	par.Finalize()
	block := ocr.Block{Paragraphs: []ocr.Paragraph{par}}
	block.Finalize()
	res.Blocks = []ocr.Block{block}
	res.Confidence = ocr.MeanConfidence(par.Words)

	if text, err := e.client.Text(); err == nil && strings.TrimSpace(text) != "" {
		res.Text = strings.TrimSpace(text)
	} else {
		res.Text = ocr.TextFromWords(par.Words)
	}
	return res, nil
}

// tessLangs maps BCP-47 hints to Tesseract language codes. Unknown
// three-letter codes pass through unchanged; anything else is dropped.
func tessLangs(hints []string) []string {
	var out []string
	for _, h := range hints {
		base := strings.ToLower(strings.SplitN(h, "-", 2)[0])
		if code, ok := bcp47ToTess[base]; ok {
			out = append(out, code)
			continue
		}
		if len(base) == 3 {
			out = append(out, base)
		}
	}
	return out
}

var bcp47ToTess = map[string]string{
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
	"pl": "pol",
	"sv": "swe",
	"da": "dan",
	"no": "nor",
	"fi": "fin",
	"is": "isl",
	"ru": "rus",
	"uk": "ukr",
	"cs": "ces",
	"tr": "tur",
	"ar": "ara",
	"ja": "jpn",
	"ko": "kor",
	"zh": "chi_sim",
	"hi": "hin",
}
