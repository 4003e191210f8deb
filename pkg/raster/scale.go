package raster

import (
	"bytes"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// ScaleTo downscales the frame so its longer edge is at most maxEdge pixels,
// preserving aspect ratio. Frames already within the bound (or a maxEdge of
// zero) are returned unchanged. Upscaling never happens.
func (f *Frame) ScaleTo(maxEdge int) (*Frame, error) {
	if maxEdge <= 0 || (f.Width <= maxEdge && f.Height <= maxEdge) {
		return f, nil
	}

	src, err := png.Decode(bytes.NewReader(f.PNG))
	if err != nil {
		return nil, docerr.Wrap(docerr.InvalidImage, "frame bitmap is not decodable", err)
	}

	longer := f.Width
	if f.Height > longer {
		longer = f.Height
	}
	ratio := float64(maxEdge) / float64(longer)
	w := int(float64(f.Width) * ratio)
	h := int(float64(f.Height) * ratio)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return &Frame{
		PNG:       buf.Bytes(),
		Width:     w,
		Height:    h,
		PageIndex: f.PageIndex,
		Scale:     f.Scale * ratio,
	}, nil
}
