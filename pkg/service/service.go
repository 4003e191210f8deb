// Package service assembles the document pipeline behind one entry point:
// a request carrying document bytes, an edit set and an optional
// recognition request comes in, edited document bytes and recognition
// results go out. The service owns no state between requests.
package service

import (
	"context"
	"log"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/batch"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/edit"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/export"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/form"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/raster"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ratelimit"
)

// DefaultMaxFileBytes caps accepted documents at 50 MB.
const DefaultMaxFileBytes = 50 << 20

// EditSet is the declarative edit request. Operations are applied in the
// documented rank order regardless of their order here.
type EditSet struct {
	Deletions        []edit.DeleteRegion  `json:"deletions,omitempty"`
	TextReplacements []edit.ReplaceText   `json:"textReplacements,omitempty"`
	Rotations        []edit.Rotate        `json:"rotations,omitempty"`
	OCRTexts         []edit.EmbedOCRText  `json:"ocrTexts,omitempty"`
	PageDeletes      []int                `json:"pageDeletes,omitempty"`
	PageReorder      []int                `json:"pageReorder,omitempty"`
	PageExtract      []int                `json:"pageExtract,omitempty"`
	PageInserts      []edit.PageInsert    `json:"pageInserts,omitempty"`
	Highlights       []edit.Highlight     `json:"highlights,omitempty"`
	Comments         []edit.Comment       `json:"comments,omitempty"`
	Stamps           []edit.Stamp         `json:"stamps,omitempty"`
	Shapes           []edit.Shape         `json:"shapes,omitempty"`
	FormFills        []edit.FillFormField `json:"formFills,omitempty"`
}

// Ops flattens the set into edit operations.
func (e *EditSet) Ops() []edit.Op {
	var ops []edit.Op
	for _, op := range e.Deletions {
		ops = append(ops, op)
	}
	for _, op := range e.TextReplacements {
		ops = append(ops, op)
	}
	for _, op := range e.Rotations {
		ops = append(ops, op)
	}
	for _, op := range e.OCRTexts {
		ops = append(ops, op)
	}
	if len(e.PageDeletes) > 0 {
		ops = append(ops, edit.PageDelete{Indices: e.PageDeletes})
	}
	if len(e.PageReorder) > 0 {
		ops = append(ops, edit.PageReorder{Order: e.PageReorder})
	}
	if len(e.PageExtract) > 0 {
		ops = append(ops, edit.PageExtract{Indices: e.PageExtract})
	}
	for _, op := range e.PageInserts {
		ops = append(ops, op)
	}
	for _, op := range e.Highlights {
		ops = append(ops, op)
	}
	for _, op := range e.Comments {
		ops = append(ops, op)
	}
	for _, op := range e.Stamps {
		ops = append(ops, op)
	}
	for _, op := range e.Shapes {
		ops = append(ops, op)
	}
	for _, op := range e.FormFills {
		ops = append(ops, op)
	}
	return ops
}

// OCRRequest asks for recognition over part or all of the document.
type OCRRequest struct {
	PageIndices   []int    `json:"pageIndices,omitempty"` // empty means every page
	LanguageHints []string `json:"languageHints,omitempty"`
	Scale         float64  `json:"scale,omitempty"`
	EmbedText     bool     `json:"embedText,omitempty"`     // draw recognized text as an invisible layer
	Force         bool     `json:"force,omitempty"`         // embed even over an existing text layer
	SkipTextPages bool     `json:"skipTextPages,omitempty"` // accept embedded text instead of recognizing
}

// Request is one document-processing request.
type Request struct {
	Document []byte      `json:"documentBytes"`
	Edits    EditSet     `json:"edits"`
	OCR      *OCRRequest `json:"ocrRequest,omitempty"`
	ClientID string      `json:"clientId,omitempty"`
}

// Response carries the result of one request.
type Response struct {
	Document []byte        `json:"documentBytes"`
	OCR      *batch.Result `json:"ocr,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Config wires the service's collaborators. Renderer and Engine are only
// required when requests carry an OCR part.
type Config struct {
	Renderer     raster.Renderer
	Engine       ocr.Engine
	Limiter      *ratelimit.Limiter
	MaxFileBytes int64   // accepted document size cap, default 50 MB
	DefaultScale float64 // render density when the request names none
	LayerName    string  // base name for embedded text layers
	Optimize     bool    // compact the exported document
	Logger       *log.Logger
}

// Service processes requests. Safe for concurrent use; each request owns
// its own document.
type Service struct {
	cfg  Config
	log  *log.Logger
	orch *batch.Orchestrator
}

// New builds a service from the config, filling defaults.
func New(cfg Config) *Service {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.DefaultScale <= 0 {
		cfg.DefaultScale = raster.DefaultScale
	}
	if cfg.LayerName == "" {
		cfg.LayerName = pdfdoc.DefaultLayerConfig().Name
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Service{cfg: cfg, log: logger}
	if cfg.Renderer != nil && cfg.Engine != nil {
		s.orch = batch.New(cfg.Renderer, cfg.Engine, cfg.Limiter, logger)
	}
	return s
}

// Process runs one request: load, recognize, edit, embed, export. Errors
// carry taxonomy codes; no partial document is ever returned.
func (s *Service) Process(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || len(req.Document) == 0 {
		return nil, docerr.New(docerr.Validation, "request carries no document bytes")
	}
	if int64(len(req.Document)) > s.cfg.MaxFileBytes {
		return nil, docerr.Newf(docerr.FileSizeExceeded,
			"document is %d bytes, the limit is %d", len(req.Document), s.cfg.MaxFileBytes)
	}

	doc, err := pdfdoc.Load(req.Document)
	if err != nil {
		return nil, err
	}

	resp := &Response{}

	if req.OCR != nil {
		result, warnings, err := s.runOCR(ctx, req, doc)
		resp.Warnings = append(resp.Warnings, warnings...)
		if err != nil {
			return nil, err
		}
		resp.OCR = result
	}

	ops := req.Edits.Ops()
	if len(ops) > 0 {
		var frm *form.Form
		if len(req.Edits.FormFills) > 0 {
			frm, err = form.Scan(req.Document)
			if err != nil {
				return nil, err
			}
		}
		warnings, err := edit.Apply(doc, frm, ops)
		if err != nil {
			return nil, err
		}
		resp.Warnings = append(resp.Warnings, warnings...)
	}

	if req.OCR != nil && req.OCR.EmbedText && resp.OCR != nil {
		s.embedTextLayer(doc, resp.OCR)
	}

	data, warnings, err := export.Document(doc, export.Options{Optimize: s.cfg.Optimize, Logger: s.log})
	if err != nil {
		return nil, err
	}
	resp.Warnings = append(resp.Warnings, warnings...)
	resp.Document = data
	return resp, nil
}

// runOCR gates re-embedding, resolves the page set and hands off to the
// batch orchestrator. Warnings are returned even when the gate rejects the
// request so the caller sees what was found.
func (s *Service) runOCR(ctx context.Context, req *Request, doc *pdfdoc.Document) (*batch.Result, []string, error) {
	if s.orch == nil {
		return nil, nil, docerr.New(docerr.Validation, "no recognition engine configured")
	}
	o := req.OCR

	var warnings []string
	if o.EmbedText {
		check, err := pdfdoc.CheckOCRLayers(req.Document, s.cfg.LayerName)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, check.Warnings...)
		if check.HasOCRLayer {
			if !o.Force {
				return nil, warnings, docerr.Newf(docerr.Validation,
					"document already carries text layer %q, set force to re-embed", check.OCRLayerName)
			}
			s.log.Printf("re-embedding over existing text layer %q", check.OCRLayerName)
		}
	}

	indices := o.PageIndices
	if len(indices) == 0 {
		indices = make([]int, doc.PageCount())
		for i := range indices {
			indices[i] = i
		}
	}

	dims := make([]batch.PageSize, doc.PageCount())
	for i := range dims {
		page, err := doc.Page(i)
		if err != nil {
			return nil, warnings, err
		}
		dims[i] = batch.PageSize{W: page.Width(), H: page.Height()}
	}

	opts := batch.DefaultOptions()
	opts.Scale = s.cfg.DefaultScale
	if o.Scale > 0 {
		opts.Scale = o.Scale
	}
	opts.LanguageHints = o.LanguageHints
	opts.ClientID = req.ClientID
	opts.SkipTextPages = o.SkipTextPages

	result, err := s.orch.ProcessBatch(ctx, req.Document, dims, indices, opts)
	return result, warnings, err
}

// embedTextLayer draws recognized words onto the pages they came from.
// Structural edits may have moved or dropped pages, so outcomes are matched
// through each page's source index; outcomes whose page is gone are
// skipped.
func (s *Service) embedTextLayer(doc *pdfdoc.Document, result *batch.Result) {
	cfg := pdfdoc.DefaultLayerConfig()
	cfg.Name = s.cfg.LayerName

	bySource := make(map[int]int, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			continue
		}
		if src := page.SourceIndex(); src >= 0 {
			if _, dup := bySource[src]; !dup {
				bySource[src] = i
			}
		}
	}

	for _, outcome := range result.Pages {
		if outcome.Result == nil {
			continue
		}
		words := outcome.Result.Words()
		if len(words) == 0 {
			continue
		}
		pageIdx, ok := bySource[outcome.PageIndex]
		if !ok {
			s.log.Printf("page %d: recognized text dropped, page no longer in document", outcome.PageIndex+1)
			continue
		}
		if err := doc.SetOCRLayer(pageIdx, words, cfg); err != nil {
			s.log.Printf("page %d: text layer not embedded: %v", outcome.PageIndex+1, err)
		}
	}
}
