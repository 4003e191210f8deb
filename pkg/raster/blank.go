package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// BlankRenderer produces plain white frames of a fixed page geometry without
// consulting the document content. It backs dry runs and tests that need a
// renderer with no external tooling.
type BlankRenderer struct {
	PageW     float64 // page width in points, default 612 (US Letter)
	PageH     float64 // page height in points, default 792
	PageCount int     // pages the fake document is assumed to have
}

// RenderPage returns a white bitmap sized PageW*scale by PageH*scale pixels.
func (r *BlankRenderer) RenderPage(ctx context.Context, pdf []byte, pageIndex int, scale float64) (*Frame, error) {
	if err := validateRenderArgs(pdf, pageIndex, scale); err != nil {
		return nil, err
	}
	if r.PageCount > 0 && pageIndex >= r.PageCount {
		return nil, docerr.Newf(docerr.Validation, "page index %d out of range [0,%d)", pageIndex, r.PageCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageW := r.PageW
	pageH := r.PageH
	if pageW <= 0 {
		pageW = 612
	}
	if pageH <= 0 {
		pageH = 792
	}

	w := int(math.Round(pageW * scale))
	h := int(math.Round(pageH * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return frameFromPNG(buf.Bytes(), pageIndex, scale)
}
