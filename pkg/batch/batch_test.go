package batch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"testing"
	"time"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/raster"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ratelimit"
)

var testDims = []PageSize{{W: 612, H: 792}, {W: 612, H: 792}, {W: 612, H: 792}}

type fakeRenderer struct {
	calls  []int
	scales []float64
	fail   map[int]error
	frame  func(pageIndex int, scale float64) *raster.Frame
}

func (r *fakeRenderer) RenderPage(_ context.Context, _ []byte, pageIndex int, scale float64) (*raster.Frame, error) {
	r.calls = append(r.calls, pageIndex)
	r.scales = append(r.scales, scale)
	if err := r.fail[pageIndex]; err != nil {
		return nil, err
	}
	if r.frame != nil {
		return r.frame(pageIndex, scale), nil
	}
	return &raster.Frame{PNG: []byte("png"), Width: 100, Height: 140, PageIndex: pageIndex, Scale: scale}, nil
}

type fakeEngine struct {
	calls   []ocr.Input
	respond func(call int, in ocr.Input) (*ocr.Result, error)
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls = append(e.calls, in)
	return e.respond(len(e.calls), in)
}

func okEngine() *fakeEngine {
	return &fakeEngine{respond: func(_ int, in ocr.Input) (*ocr.Result, error) {
		return &ocr.Result{PageIndex: in.PageIndex, Text: "hello", Confidence: 0.9}, nil
	}}
}

// testOrchestrator wires fakes and replaces the real sleep with a recorder
// so tests never wait out actual delays.
func testOrchestrator(r raster.Renderer, e ocr.Engine, l *ratelimit.Limiter) (*Orchestrator, *[]time.Duration) {
	o := New(r, e, l, log.New(io.Discard, "", 0))
	sleeps := &[]time.Duration{}
	o.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	o.textLayer = func(_ []byte, _ int) (string, error) { return "", nil }
	return o, sleeps
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessBatchAllPagesSucceed(t *testing.T) {
	rend := &fakeRenderer{}
	eng := okEngine()
	o, sleeps := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0, 1, 2}, Options{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.TotalPages != 3 || res.ProcessedPages != 3 || res.FailedPages != 0 {
		t.Errorf("got total=%d processed=%d failed=%d, want 3/3/0",
			res.TotalPages, res.ProcessedPages, res.FailedPages)
	}
	if !res.Success {
		t.Error("batch with no failures should report success")
	}
	if res.EngineName != "fake" {
		t.Errorf("engine name = %q, want %q", res.EngineName, "fake")
	}
	for _, p := range res.Pages {
		if p.Source != SourceEngine {
			t.Errorf("page %d source = %q, want %q", p.PageIndex, p.Source, SourceEngine)
		}
		if p.Attempts != 1 {
			t.Errorf("page %d attempts = %d, want 1", p.PageIndex, p.Attempts)
		}
	}

	// Zero-value options fall back to the standard render density, and the
	// engine sees the page geometry it needs for coordinate mapping.
	for i, s := range rend.scales {
		if s != raster.DefaultScale {
			t.Errorf("render call %d scale = %g, want %g", i, s, raster.DefaultScale)
		}
	}
	if got := eng.calls[1]; got.PageW != 612 || got.PageH != 792 || got.RasterW != 100 || got.RasterH != 140 {
		t.Errorf("engine input geometry = %+v", got)
	}

	// Three successful calls mean two inter-call delays.
	if len(*sleeps) != 2 {
		t.Fatalf("got %d inter-call delays, want 2", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != DefaultInterCallDelay {
			t.Errorf("delay = %v, want %v", d, DefaultInterCallDelay)
		}
	}
}

func TestProcessBatchRecordsPageFailures(t *testing.T) {
	rend := &fakeRenderer{fail: map[int]error{
		1: docerr.New(docerr.InvalidImage, "rendered page is not a valid bitmap"),
	}}
	eng := &fakeEngine{respond: func(_ int, in ocr.Input) (*ocr.Result, error) {
		if in.PageIndex == 2 {
			return nil, errors.New("backend hiccup")
		}
		return &ocr.Result{PageIndex: in.PageIndex, Text: "ok", Confidence: 0.8}, nil
	}}
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0, 1, 2}, Options{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.ProcessedPages+res.FailedPages != res.TotalPages {
		t.Errorf("completeness broken: processed=%d failed=%d total=%d",
			res.ProcessedPages, res.FailedPages, res.TotalPages)
	}
	if res.ProcessedPages != 1 || res.FailedPages != 2 {
		t.Errorf("got processed=%d failed=%d, want 1/2", res.ProcessedPages, res.FailedPages)
	}
	if res.Success {
		t.Error("batch with failures should not report success")
	}

	want := []PageError{
		{PageIndex: 1, Code: docerr.InvalidImage, Message: "rendered page is not a valid bitmap"},
		{PageIndex: 2, Code: docerr.RecognitionFailed, Message: "text recognition failed"},
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("got %d page errors, want %d: %+v", len(res.Errors), len(want), res.Errors)
	}
	for i, w := range want {
		if res.Errors[i] != w {
			t.Errorf("error %d = %+v, want %+v", i, res.Errors[i], w)
		}
	}
}

func TestProcessBatchRateLimitDenial(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Window: time.Minute, Max: 1})
	defer limiter.Close()

	rend := &fakeRenderer{}
	eng := okEngine()
	o, _ := testOrchestrator(rend, eng, limiter)

	opts := Options{ClientID: "tenant-a"}
	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0, 1}, opts)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.ProcessedPages != 1 || res.FailedPages != 1 {
		t.Fatalf("got processed=%d failed=%d, want 1/1", res.ProcessedPages, res.FailedPages)
	}
	if len(eng.calls) != 1 {
		t.Errorf("engine called %d times, want 1 (denied page must not reach it)", len(eng.calls))
	}

	pe := res.Errors[0]
	if pe.PageIndex != 1 || pe.Code != docerr.RateLimitExceeded {
		t.Errorf("page error = %+v, want page 1 %s", pe, docerr.RateLimitExceeded)
	}
	if pe.RetryAfter < 1 || pe.RetryAfter > 60 {
		t.Errorf("retryAfter = %d, want within (0,60]", pe.RetryAfter)
	}
}

func TestProcessBatchPermissionDeniedAborts(t *testing.T) {
	rend := &fakeRenderer{}
	eng := &fakeEngine{respond: func(_ int, in ocr.Input) (*ocr.Result, error) {
		if in.PageIndex == 1 {
			return nil, docerr.New(docerr.PermissionDenied, "recognition credentials rejected")
		}
		return &ocr.Result{PageIndex: in.PageIndex, Confidence: 0.8}, nil
	}}
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0, 1, 2}, Options{})
	if err == nil {
		t.Fatal("expected batch-fatal error")
	}
	if res != nil {
		t.Errorf("aborted batch should return no result, got %+v", res)
	}
	if docerr.CodeOf(err) != docerr.PermissionDenied {
		t.Errorf("error code = %q, want %q", docerr.CodeOf(err), docerr.PermissionDenied)
	}
	if len(eng.calls) != 2 {
		t.Errorf("engine called %d times, want 2 (page 2 must not be attempted)", len(eng.calls))
	}
}

func TestProcessBatchBlankPageIsSuccess(t *testing.T) {
	rend := &fakeRenderer{}
	eng := &fakeEngine{respond: func(_ int, in ocr.Input) (*ocr.Result, error) {
		return &ocr.Result{PageIndex: in.PageIndex}, nil
	}}
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0}, Options{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if !res.Success || res.ProcessedPages != 1 {
		t.Fatalf("blank page should be a success, got %+v", res)
	}
	out := res.Pages[0]
	if out.Result.Text != "" || len(out.Result.Blocks) != 0 {
		t.Errorf("blank page result = %+v, want empty text and no blocks", out.Result)
	}
}

func TestProcessBatchRetriesTimeoutOnce(t *testing.T) {
	timeoutOnce := func() *fakeEngine {
		return &fakeEngine{respond: func(call int, in ocr.Input) (*ocr.Result, error) {
			if call == 1 {
				return nil, context.DeadlineExceeded
			}
			return &ocr.Result{PageIndex: in.PageIndex, Text: "second try", Confidence: 0.7}, nil
		}}
	}

	t.Run("disabled", func(t *testing.T) {
		eng := timeoutOnce()
		o, _ := testOrchestrator(&fakeRenderer{}, eng, nil)

		res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0}, Options{})
		if err != nil {
			t.Fatalf("ProcessBatch: %v", err)
		}
		if res.FailedPages != 1 || res.Errors[0].Code != docerr.Timeout {
			t.Errorf("got %+v, want one %s failure", res.Errors, docerr.Timeout)
		}
		if len(eng.calls) != 1 {
			t.Errorf("engine called %d times, want 1", len(eng.calls))
		}
	})

	t.Run("enabled", func(t *testing.T) {
		eng := timeoutOnce()
		o, _ := testOrchestrator(&fakeRenderer{}, eng, nil)

		res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0}, Options{RetryTimeouts: true})
		if err != nil {
			t.Fatalf("ProcessBatch: %v", err)
		}
		if res.ProcessedPages != 1 || res.FailedPages != 0 {
			t.Fatalf("got processed=%d failed=%d, want 1/0", res.ProcessedPages, res.FailedPages)
		}
		if got := res.Pages[0].Attempts; got != 2 {
			t.Errorf("attempts = %d, want 2", got)
		}
		if len(eng.calls) != 2 {
			t.Errorf("engine called %d times, want 2", len(eng.calls))
		}
	})
}

func TestProcessBatchCancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rend := &fakeRenderer{}
		o, _ := testOrchestrator(rend, okEngine(), nil)

		res, err := o.ProcessBatch(ctx, []byte("%PDF"), testDims, []int{0, 1}, Options{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if res != nil || len(rend.calls) != 0 {
			t.Errorf("canceled batch did work: res=%+v renders=%d", res, len(rend.calls))
		}
	})

	t.Run("between pages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Cancel during the first engine call: the call still completes on
		// its detached context, then the batch stops before page 1.
		eng := &fakeEngine{}
		eng.respond = func(_ int, in ocr.Input) (*ocr.Result, error) {
			cancel()
			return &ocr.Result{PageIndex: in.PageIndex, Text: "late"}, nil
		}
		o, _ := testOrchestrator(&fakeRenderer{}, eng, nil)

		res, err := o.ProcessBatch(ctx, []byte("%PDF"), testDims, []int{0, 1}, Options{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if res != nil {
			t.Errorf("aborted batch should discard results, got %+v", res)
		}
		if len(eng.calls) != 1 {
			t.Errorf("engine called %d times, want 1", len(eng.calls))
		}
	})
}

func TestProcessBatchSkipTextPages(t *testing.T) {
	rend := &fakeRenderer{}
	eng := okEngine()
	o, sleeps := testOrchestrator(rend, eng, nil)
	o.textLayer = func(_ []byte, pageIndex int) (string, error) {
		switch pageIndex {
		case 0:
			return "already searchable\n", nil
		case 1:
			return "", errors.New("stream decode failed")
		default:
			return "", nil
		}
	}

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0, 1}, Options{SkipTextPages: true})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.ProcessedPages != 2 || !res.Success {
		t.Fatalf("got %+v, want two successes", res)
	}

	skip := res.Pages[0]
	if skip.Source != SourceTextLayer {
		t.Errorf("page 0 source = %q, want %q", skip.Source, SourceTextLayer)
	}
	if skip.Result.Text != "already searchable" || skip.Result.Confidence != 1 {
		t.Errorf("page 0 result = %+v", skip.Result)
	}

	// A failed probe falls through to recognition.
	if res.Pages[1].Source != SourceEngine {
		t.Errorf("page 1 source = %q, want %q", res.Pages[1].Source, SourceEngine)
	}
	if len(eng.calls) != 1 || eng.calls[0].PageIndex != 1 {
		t.Errorf("engine calls = %+v, want page 1 only", eng.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("got %d delays, want 0 (skips make no upstream calls)", len(*sleeps))
	}
}

func TestProcessBatchValidation(t *testing.T) {
	cases := []struct {
		name    string
		pdf     []byte
		dims    []PageSize
		indices []int
	}{
		{"empty document", nil, testDims, []int{0}},
		{"no pages", []byte("%PDF"), nil, []int{0}},
		{"negative index", []byte("%PDF"), testDims, []int{-1}},
		{"index out of range", []byte("%PDF"), testDims, []int{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rend := &fakeRenderer{}
			o, _ := testOrchestrator(rend, okEngine(), nil)

			res, err := o.ProcessBatch(context.Background(), tc.pdf, tc.dims, tc.indices, Options{})
			if err == nil || docerr.CodeOf(err) != docerr.Validation {
				t.Fatalf("err = %v, want %s", err, docerr.Validation)
			}
			if res != nil || len(rend.calls) != 0 {
				t.Errorf("rejected batch did work: res=%+v renders=%d", res, len(rend.calls))
			}
		})
	}
}

func TestProcessBatchDeduplicatesIndices(t *testing.T) {
	rend := &fakeRenderer{}
	eng := okEngine()
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{2, 0, 2, 0}, Options{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.TotalPages != 2 || res.ProcessedPages != 2 {
		t.Errorf("got total=%d processed=%d, want 2/2", res.TotalPages, res.ProcessedPages)
	}
	if len(rend.calls) != 2 || rend.calls[0] != 2 || rend.calls[1] != 0 {
		t.Errorf("render order = %v, want [2 0]", rend.calls)
	}
	if out := res.Outcome(2); out == nil || out.Result.PageIndex != 2 {
		t.Errorf("Outcome(2) = %+v", out)
	}
	if out := res.Outcome(1); out != nil {
		t.Errorf("Outcome(1) = %+v, want nil for unrequested page", out)
	}
}

func TestProcessBatchEmptyIndices(t *testing.T) {
	rend := &fakeRenderer{}
	eng := okEngine()
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, nil, Options{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.TotalPages != 0 || !res.Success {
		t.Errorf("got %+v, want empty successful result", res)
	}
	if len(rend.calls) != 0 || len(eng.calls) != 0 {
		t.Errorf("empty batch did work: renders=%d recognitions=%d", len(rend.calls), len(eng.calls))
	}
}

func TestProcessBatchCapsFrameEdge(t *testing.T) {
	data := pngBytes(t, 8, 4)
	rend := &fakeRenderer{frame: func(pageIndex int, scale float64) *raster.Frame {
		return &raster.Frame{PNG: data, Width: 8, Height: 4, PageIndex: pageIndex, Scale: scale}
	}}
	eng := okEngine()
	o, _ := testOrchestrator(rend, eng, nil)

	res, err := o.ProcessBatch(context.Background(), []byte("%PDF"), testDims, []int{0}, Options{MaxFrameEdge: 2})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	out := res.Pages[0]
	if out.RasterW != 2 || out.RasterH != 1 {
		t.Errorf("capped frame = %dx%d, want 2x1", out.RasterW, out.RasterH)
	}
	if in := eng.calls[0]; in.RasterW != 2 || in.RasterH != 1 {
		t.Errorf("engine saw %dx%d, want the capped frame", in.RasterW, in.RasterH)
	}
}
