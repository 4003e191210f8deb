// Package docai integrates Google Document AI as a recognition engine.
//
// The package sends page bitmaps to a Document AI OCR processor and
// normalizes the proto response into the model in pkg/ocr, so callers never
// see the vendor schema. Bounding polygons are scaled onto the submitted
// bitmap and mapped into document space through the geometry carried by the
// recognition input.
//
// Key Features:
//
// - Process page bitmaps (or whole PDFs) with a Document AI processor
// - Normalize the proto response into the Word/Paragraph/Block hierarchy
// - Rebuild the hierarchy from text-anchor intervals, with deterministic word order
// - Extract form fields and custom extractor entities as plain maps
// - Classify transport errors into the shared error taxonomy
//
// Usage Requirements:
//
// - Google Cloud project with the Document AI API enabled
// - A processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS or a credentials file
package docai

import (
	"context"
	"fmt"
	"io"
	"os"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// Config identifies the Document AI processor to call.
type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string

	// CredentialsFile overrides GOOGLE_APPLICATION_CREDENTIALS when set.
	CredentialsFile string

	// DebugWriter receives the raw vendor response of every recognized
	// page as JSON, one document per line. Nil disables the dump.
	DebugWriter io.Writer
}

// Engine is a recognition engine backed by Google Document AI. The client
// is created once and reused across pages; Close releases it.
type Engine struct {
	cfg    Config
	client *documentai.DocumentProcessorClient
}

// New connects to the regional Document AI endpoint for the configured
// processor.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, docerr.New(docerr.Validation,
			"documentai engine requires project_id, location and processor_id")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &Engine{cfg: cfg, client: client}, nil
}

// Name identifies the engine in logs and results.
func (e *Engine) Name() string { return "documentai" }

// Close releases the underlying gRPC client.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Recognize sends one page bitmap to the processor and returns the
// normalized result. Transport failures come back classified; a page
// without text is a successful empty result.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	if len(in.Image) == 0 {
		return nil, docerr.New(docerr.Validation, "recognition input has no image data").OnPage(in.PageIndex)
	}
	mime := in.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	docProto, err := e.ProcessRaw(ctx, in.Image, mime, in.LanguageHints)
	if err != nil {
		return nil, docerr.Classify(err).OnPage(in.PageIndex)
	}
	if e.cfg.DebugWriter != nil {
		e.dumpRaw(docProto)
	}
	return ResultFromProto(docProto, in)
}

// dumpRaw writes the unmodified vendor response to the debug writer. The
// dump is best effort; a response that does not marshal is skipped.
func (e *Engine) dumpRaw(doc *documentaipb.Document) {
	raw, err := RawJSON(doc)
	if err != nil {
		return
	}
	fmt.Fprintln(e.cfg.DebugWriter, raw)
}

// ProcessRaw sends raw content to the processor and returns the unmodified
// Document proto. Callers wanting the taxonomy should classify the error.
func (e *Engine) ProcessRaw(ctx context.Context, content []byte, mimeType string, languageHints []string) (*documentaipb.Document, error) {
	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	}
	if len(languageHints) > 0 {
		req.ProcessOptions = &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				Hints: &documentaipb.OcrConfig_Hints{
					LanguageHints: languageHints,
				},
			},
		}
	}

	resp, err := e.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return resp.Document, nil
}

func (e *Engine) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.cfg.ProjectID, e.cfg.Location, e.cfg.ProcessorID)
}
