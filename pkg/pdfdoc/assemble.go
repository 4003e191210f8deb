package pdfdoc

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
)

// NewFromImages assembles a document from page images, one page per image.
// Page dimensions derive from the pixel size divided by scale, so images
// rendered at 2.0 map back to their original point dimensions. Pages built
// this way have no source page to import; the image itself becomes the page
// content.
func NewFromImages(images [][]byte, scale float64) (*Document, error) {
	if len(images) == 0 {
		return nil, docerr.New(docerr.Validation, "no images supplied")
	}
	if scale <= 0 {
		return nil, docerr.New(docerr.Validation, "scale must be positive")
	}

	doc := &Document{}
	for i, data := range images {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, docerr.Wrap(docerr.InvalidImage,
				fmt.Sprintf("image %d is not decodable", i), err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, docerr.Newf(docerr.InvalidImage, "image %d has empty dimensions", i)
		}

		w := float64(cfg.Width) / scale
		h := float64(cfg.Height) / scale
		page := &Page{w: w, h: h, srcIndex: -1}
		doc.pages = append(doc.pages, page)

		op := ImageOp{Data: data, Rect: geom.Rect{X: 0, Y: 0, W: w, H: h}}
		if err := doc.Draw(i, op); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
