package pdfdoc

import (
	"fmt"

	"codeberg.org/go-pdf/fpdf"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// LayerConfig controls how recognized text is drawn into a page's
// optional-content layer.
type LayerConfig struct {
	Name        string  // base layer name; the page number is appended
	Debug       bool    // draw visible red text and word boxes instead of invisible text
	FontSize    float64 // base font size before per-word scaling
	AscentRatio float64 // baseline offset as a fraction of the font size
}

// DefaultLayerConfig returns the settings proven out for searchable text
// layers: Helvetica at 10pt, invisible, baseline at 0.718 of the size.
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{
		Name:        "OCR Text",
		FontSize:    10,
		AscentRatio: 0.718,
	}
}

type ocrLayer struct {
	cfg   LayerConfig
	words []ocr.Word
}

// SetOCRLayer queues recognized words as the page's searchable text layer.
// Words are drawn into a named optional-content group at alpha 0, each one
// horizontally scaled to its document-space box, so the text is selectable
// and searchable without changing the page's appearance. Setting an empty
// word list clears the layer.
func (d *Document) SetOCRLayer(page int, words []ocr.Word, cfg LayerConfig) error {
	p, err := d.Page(page)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		p.layer = nil
		return nil
	}

	def := DefaultLayerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = def.FontSize
	}
	if cfg.AscentRatio <= 0 {
		cfg.AscentRatio = def.AscentRatio
	}

	p.layer = &ocrLayer{cfg: cfg, words: append([]ocr.Word(nil), words...)}
	return nil
}

// renderOCRLayer draws the page's text layer. Each page gets its own layer
// name so readers list them individually and the whole layer can be toggled.
func renderOCRLayer(pdf *fpdf.Fpdf, page *Page, pageNo int) error {
	cfg := page.layer.cfg
	layer := pdf.AddLayer(fmt.Sprintf("%s (Page %d)", cfg.Name, pageNo), true)
	pdf.BeginLayer(layer)
	pdf.SetFont("Helvetica", "", cfg.FontSize)

	if cfg.Debug {
		pdf.SetTextColor(255, 0, 0)
	} else {
		pdf.SetAlpha(0.0, "Normal")
	}

	encodingErrors := 0
	for _, word := range page.layer.words {
		drawLayerWord(pdf, word, page.h, cfg, &encodingErrors)
	}

	pdf.EndLayer()
	if !cfg.Debug {
		pdf.SetAlpha(1.0, "Normal")
	}

	// A few unencodable words are tolerable; a large share means the layer
	// would be unsearchable garbage.
	if n := len(page.layer.words); n > 0 && encodingErrors > n/10 {
		return fmt.Errorf("character encoding issues in %d of %d words", encodingErrors, n)
	}
	return nil
}

func drawLayerWord(pdf *fpdf.Fpdf, word ocr.Word, pageH float64, cfg LayerConfig, encodingErrors *int) {
	box := word.Box
	x := box.X
	top := pageH - box.Top()

	latin1, ok := encodeText(word.Text)
	if !ok {
		*encodingErrors++
	}

	// Stretch the word to its recognized box so selection highlights line up.
	if strWidth := pdf.GetStringWidth(latin1); strWidth > 0 {
		pdf.SetFontSize(cfg.FontSize * box.W / strWidth)
	}

	fontSize, _ := pdf.GetFontSize()
	pdf.Text(x, top+fontSize*cfg.AscentRatio, latin1)
	pdf.SetFontSize(cfg.FontSize)

	if cfg.Debug {
		pdf.Rect(x, top, box.W, box.H, "D")
	}
}
