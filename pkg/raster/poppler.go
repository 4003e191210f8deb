package raster

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// PopplerRenderer renders pages by shelling out to pdftoppm from
// poppler-utils. Each call writes the document into a private temporary
// directory, renders exactly one page to PNG and cleans up afterwards.
type PopplerRenderer struct {
	Binary string // pdftoppm binary to invoke, default "pdftoppm"
}

// NewPopplerRenderer returns a renderer using the pdftoppm found on PATH.
func NewPopplerRenderer() *PopplerRenderer {
	return &PopplerRenderer{Binary: "pdftoppm"}
}

// RenderPage renders the zero-based page at the given scale. Scale is
// expressed in device pixels per point and converted to DPI for pdftoppm.
// A context deadline that expires mid-render kills the process and yields a
// classified Timeout.
func (r *PopplerRenderer) RenderPage(ctx context.Context, pdf []byte, pageIndex int, scale float64) (*Frame, error) {
	if err := validateRenderArgs(pdf, pageIndex, scale); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "doctools-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create render scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage document for rendering: %w", err)
	}

	binary := r.Binary
	if binary == "" {
		binary = "pdftoppm"
	}
	page := strconv.Itoa(pageIndex + 1) // pdftoppm counts from 1
	dpi := strconv.Itoa(int(math.Round(scale * 72)))
	prefix := filepath.Join(dir, "page")

	cmd := exec.CommandContext(ctx, binary,
		"-png",
		"-r", dpi,
		"-f", page,
		"-l", page,
		"-singlefile",
		input, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, docerr.Wrap(docerr.Timeout, "page render timed out", ctx.Err())
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("page render aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, stderr.String())
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		// Older poppler builds ignore -singlefile and number the output.
		matches, _ := filepath.Glob(prefix + "*.png")
		if len(matches) == 0 {
			return nil, docerr.Newf(docerr.Validation,
				"page %d could not be rendered; index may be out of range", pageIndex)
		}
		data, err = os.ReadFile(matches[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page: %w", err)
		}
	}

	return frameFromPNG(data, pageIndex, scale)
}
