// Package batch sequences per-page recognition over one document: render
// the page, hand the bitmap to the engine, record the outcome. Pages fail
// independently and the batch runs to completion, except that a credential
// failure or caller cancellation aborts the whole run.
package batch

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/raster"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ratelimit"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultRenderTimeout    = 30 * time.Second
	DefaultRecognizeTimeout = 60 * time.Second
	DefaultInterCallDelay   = 100 * time.Millisecond
	DefaultMaxFrameEdge     = 4096
)

// Options tune one batch run.
type Options struct {
	Scale            float64       // render density in pixels per point
	RenderTimeout    time.Duration // per-page render bound
	RecognizeTimeout time.Duration // per-page recognition bound
	InterCallDelay   time.Duration // pause between successful engine calls
	RetryTimeouts    bool          // retry a timed-out page once
	SkipTextPages    bool          // accept an embedded text layer instead of recognizing
	MaxFrameEdge     int           // cap on the longer raster edge, zero disables
	LanguageHints    []string      // BCP-47 hints passed to the engine
	ClientID         string        // rate-limit key
}

// DefaultOptions returns the standard batch settings.
func DefaultOptions() Options {
	return Options{
		Scale:            raster.DefaultScale,
		RenderTimeout:    DefaultRenderTimeout,
		RecognizeTimeout: DefaultRecognizeTimeout,
		InterCallDelay:   DefaultInterCallDelay,
		MaxFrameEdge:     DefaultMaxFrameEdge,
	}
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = raster.DefaultScale
	}
	if o.RenderTimeout <= 0 {
		o.RenderTimeout = DefaultRenderTimeout
	}
	if o.RecognizeTimeout <= 0 {
		o.RecognizeTimeout = DefaultRecognizeTimeout
	}
	if o.InterCallDelay <= 0 {
		o.InterCallDelay = DefaultInterCallDelay
	}
	return o
}

// PageSize is one page's media box size in points.
type PageSize struct {
	W float64
	H float64
}

// Source records where a page's text came from.
type Source string

const (
	// SourceEngine marks text produced by the recognition engine.
	SourceEngine Source = "engine"
	// SourceTextLayer marks text lifted from an embedded text layer.
	SourceTextLayer Source = "text-layer"
)

// PageOutcome is one successfully processed page.
type PageOutcome struct {
	PageIndex int         `json:"pageIndex"`
	Result    *ocr.Result `json:"result"`
	RasterW   int         `json:"rasterW,omitempty"`
	RasterH   int         `json:"rasterH,omitempty"`
	Source    Source      `json:"source"`
	Attempts  int         `json:"attempts,omitempty"`
}

// PageError is one failed page.
type PageError struct {
	PageIndex  int         `json:"pageIndex"`
	Code       docerr.Code `json:"code"`
	Message    string      `json:"message"`
	RetryAfter int         `json:"retryAfter,omitempty"`
}

// Result aggregates a finished batch. ProcessedPages+FailedPages always
// equals TotalPages, and Success means no page failed.
type Result struct {
	TotalPages     int           `json:"totalPages"`
	ProcessedPages int           `json:"processedPages"`
	FailedPages    int           `json:"failedPages"`
	Success        bool          `json:"success"`
	EngineName     string        `json:"engineName"`
	Pages          []PageOutcome `json:"pages,omitempty"`
	Errors         []PageError   `json:"errors,omitempty"`
}

// Outcome returns the outcome recorded for a page, or nil if the page
// failed or was never requested.
func (r *Result) Outcome(pageIndex int) *PageOutcome {
	for i := range r.Pages {
		if r.Pages[i].PageIndex == pageIndex {
			return &r.Pages[i]
		}
	}
	return nil
}

// Orchestrator drives a renderer and a recognition engine page by page.
type Orchestrator struct {
	renderer raster.Renderer
	engine   ocr.Engine
	limiter  *ratelimit.Limiter
	log      *log.Logger

	sleep     func(ctx context.Context, d time.Duration) error
	textLayer func(pdf []byte, pageIndex int) (string, error)
}

// New builds an orchestrator. The limiter is optional; a nil logger falls
// back to the standard logger.
func New(renderer raster.Renderer, engine ocr.Engine, limiter *ratelimit.Limiter, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		renderer:  renderer,
		engine:    engine,
		limiter:   limiter,
		log:       logger,
		sleep:     waitFor,
		textLayer: extractPageText,
	}
}

// ProcessBatch recognizes the given pages of a document, sequentially and
// in the given order. dims carries the media box of every page of the
// document so results can be mapped into document space. Duplicate indices
// are processed once; an empty index list yields an empty successful
// result.
//
// A page failure is recorded in Errors and the batch moves on. Two
// conditions abort the run instead and return no Result: a
// PermissionDenied classification, since every further call would fail the
// same way, and cancellation of ctx, which is honored between pages so an
// in-flight engine call may finish (its result is discarded).
func (o *Orchestrator) ProcessBatch(ctx context.Context, pdf []byte, dims []PageSize, pageIndices []int, opts Options) (*Result, error) {
	if o.renderer == nil || o.engine == nil {
		return nil, docerr.New(docerr.Validation, "orchestrator needs a renderer and an engine")
	}
	if len(pdf) == 0 {
		return nil, docerr.New(docerr.Validation, "document bytes are empty")
	}
	if len(dims) == 0 {
		return nil, docerr.New(docerr.Validation, "document has no pages")
	}
	for _, idx := range pageIndices {
		if idx < 0 || idx >= len(dims) {
			return nil, docerr.Newf(docerr.Validation, "page index %d out of range [0,%d)", idx, len(dims))
		}
	}
	opts = opts.withDefaults()

	indices := dedupe(pageIndices)
	res := &Result{TotalPages: len(indices), EngineName: o.engine.Name()}

	delayed := false
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if opts.SkipTextPages {
			if text := o.probeTextLayer(pdf, idx); text != "" {
				o.log.Printf("page %d: existing text layer found, recognition skipped", idx+1)
				res.Pages = append(res.Pages, PageOutcome{
					PageIndex: idx,
					Result:    &ocr.Result{PageIndex: idx, Text: text, Confidence: 1},
					Source:    SourceTextLayer,
				})
				continue
			}
		}

		attempts := 1
		for {
			out, err := o.processPage(ctx, pdf, dims[idx], idx, attempts, opts, &delayed)
			if err == nil {
				o.log.Printf("page %d: recognized %d words (confidence %.2f)", idx+1, len(out.Result.Words()), out.Result.Confidence)
				res.Pages = append(res.Pages, out)
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			de := docerr.Classify(err)
			if de.Code == docerr.PermissionDenied {
				return nil, de
			}
			if opts.RetryTimeouts && de.Code == docerr.Timeout && attempts == 1 {
				o.log.Printf("page %d: %s, retrying once", idx+1, de.Code)
				attempts++
				continue
			}
			o.log.Printf("page %d: %v", idx+1, de)
			res.Errors = append(res.Errors, PageError{
				PageIndex:  idx,
				Code:       de.Code,
				Message:    de.Message,
				RetryAfter: de.RetryAfter,
			})
			break
		}
	}

	res.ProcessedPages = len(res.Pages)
	res.FailedPages = len(res.Errors)
	res.Success = res.FailedPages == 0
	return res, nil
}

// processPage runs the render-recognize pipeline for one page. The delayed
// flag carries pacing state across pages: it is set after each successful
// engine call so the next call waits out the inter-call delay first.
func (o *Orchestrator) processPage(ctx context.Context, pdf []byte, size PageSize, pageIndex, attempt int, opts Options, delayed *bool) (PageOutcome, error) {
	if o.limiter != nil {
		ok, retryAfter := o.limiter.Allow(opts.ClientID)
		if !ok {
			return PageOutcome{}, docerr.New(docerr.RateLimitExceeded, "recognition rate limit exceeded").
				OnPage(pageIndex).
				WithRetryAfter(retryAfter)
		}
	}

	if *delayed && opts.InterCallDelay > 0 {
		if err := o.sleep(ctx, opts.InterCallDelay); err != nil {
			return PageOutcome{}, err
		}
	}

	rctx, cancel := context.WithTimeout(ctx, opts.RenderTimeout)
	frame, err := o.renderer.RenderPage(rctx, pdf, pageIndex, opts.Scale)
	cancel()
	if err != nil {
		return PageOutcome{}, err
	}
	if opts.MaxFrameEdge > 0 {
		frame, err = frame.ScaleTo(opts.MaxFrameEdge)
		if err != nil {
			return PageOutcome{}, err
		}
	}

	in := ocr.Input{
		Image:         frame.PNG,
		MIMEType:      "image/png",
		PageIndex:     pageIndex,
		LanguageHints: opts.LanguageHints,
		RasterW:       frame.Width,
		RasterH:       frame.Height,
		PageW:         size.W,
		PageH:         size.H,
	}

	// The recognition context is detached from the caller's so an in-flight
	// call can run to completion after cancellation; the timeout still
	// bounds it.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.RecognizeTimeout)
	result, err := o.engine.Recognize(cctx, in)
	cancel()
	if err != nil {
		return PageOutcome{}, err
	}

	*delayed = true
	return PageOutcome{
		PageIndex: pageIndex,
		Result:    result,
		RasterW:   frame.Width,
		RasterH:   frame.Height,
		Source:    SourceEngine,
		Attempts:  attempt,
	}, nil
}

func (o *Orchestrator) probeTextLayer(pdf []byte, pageIndex int) string {
	if o.textLayer == nil {
		return ""
	}
	text, err := o.textLayer(pdf, pageIndex)
	if err != nil {
		o.log.Printf("page %d: text layer probe failed: %v", pageIndex+1, err)
		return ""
	}
	return strings.TrimSpace(text)
}

func waitFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dedupe(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}
