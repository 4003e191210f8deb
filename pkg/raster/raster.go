// Package raster renders document pages into transient bitmaps for
// recognition. A Frame lives only for the duration of one request and is
// never persisted.
package raster

import (
	"bytes"
	"context"
	"image/png"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// DefaultScale is the standard render density in device pixels per point.
const DefaultScale = 2.0

// Frame is one rendered page bitmap.
type Frame struct {
	PNG       []byte  // encoded bitmap
	Width     int     // bitmap width in pixels
	Height    int     // bitmap height in pixels
	PageIndex int     // zero-based page the frame was rendered from
	Scale     float64 // device pixels per point at render time
}

// Renderer renders a single page of a PDF to a bitmap. Implementations must
// be deterministic for a fixed document and scale and must leave no
// persistent side effects.
type Renderer interface {
	RenderPage(ctx context.Context, pdf []byte, pageIndex int, scale float64) (*Frame, error)
}

func validateRenderArgs(pdf []byte, pageIndex int, scale float64) error {
	if len(pdf) == 0 {
		return docerr.New(docerr.Validation, "document bytes are empty")
	}
	if pageIndex < 0 {
		return docerr.Newf(docerr.Validation, "page index %d out of range", pageIndex)
	}
	if scale <= 0 {
		return docerr.Newf(docerr.Validation, "render scale must be positive, got %g", scale)
	}
	return nil
}

func frameFromPNG(data []byte, pageIndex int, scale float64) (*Frame, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, docerr.Wrap(docerr.InvalidImage, "rendered page is not a valid bitmap", err)
	}
	return &Frame{
		PNG:       data,
		Width:     cfg.Width,
		Height:    cfg.Height,
		PageIndex: pageIndex,
		Scale:     scale,
	}, nil
}
