// doctools is a command-line tool for editing PDF documents and making them searchable with OCR.
//
// The tool applies an edit set (redaction, text replacement, page management,
// annotations, form fills) described in a JSON file, optionally runs text
// recognition over the document pages, embeds the recognized text as an
// invisible layer, and exports the result. Recognition runs against Google
// Document AI or a local Tesseract install, selected in the configuration file.
//
// Configuration:
//
// Recognition requires a YAML configuration file naming the engine:
//
//	engine: "documentai"              # or "tesseract"
//	project_id: "your-gcp-project-id" # documentai
//	location: "us"                    # documentai
//	processor_id: "your-processor-id" # documentai
//	credentials: "/path/to/credentials.json"
//	languages: ["eng", "deu"]         # tesseract
//	layer_name: "OCR Text"
//	max_file_mb: 50
//	rate_window_seconds: 60
//	rate_max_calls: 100
//	renderer: "poppler"               # or "blank" for dry runs
//
// Usage:
//
//	doctools -pdf input.pdf [options]
//
// Required flags:
//
//	-pdf string     Path to the input PDF file
//
// Edit options:
//
//	-edits string   Path to a JSON edit-set file (see below)
//
// OCR options:
//
//	-ocr            Run text recognition over the document pages
//	-config string  Path to the YAML configuration file (required with -ocr)
//	-pages string   1-based page ranges to recognize, e.g. "1-3,5" (default all)
//	-lang string    Comma-separated recognition language hints
//	-scale float    Render density in pixels per point (default 2.0)
//	-embed          Embed recognized text as an invisible searchable layer
//	-force          Embed even when the document already carries a text layer
//	-skip-text      Reuse embedded page text instead of calling the engine
//	-debug-api string  Path to save raw recognition API responses as JSON
//
// Output options (at least one required):
//
//	-output string  Path to save the processed PDF
//	-text string    Path to save recognized plain text
//	-hocr string    Path to save recognized text as hOCR
//	-images string  Directory to save rendered page images
//
// Other options:
//
//	-optimize       Compact the exported PDF
//	-overwrite      Overwrite the output PDF if it already exists
//	-client string  Rate-limit client identifier (default "cli")
//
// The edit-set file is JSON:
//
//	{
//	  "deletions": [{"pageIndex": 0, "x": 72, "y": 500, "width": 200, "height": 40}],
//	  "textReplacements": [{"pageIndex": 0, "oldText": "DRAFT", "newText": "FINAL",
//	                        "x": 72, "y": 96, "fontSize": 12, "fontColor": "#ff0000"}],
//	  "rotations": [{"pageIndex": 1, "angle": 90}],
//	  "pageDeletes": [3],
//	  "formFills": [{"field": "name", "value": "Jane Doe"}]
//	}
//
// Authentication:
//
// With engine "documentai" the tool reads credentials from the configuration
// file or the GOOGLE_APPLICATION_CREDENTIALS environment variable.
//
// Examples:
//
//	doctools -pdf scan.pdf -config config.yml -ocr -embed -output scan_searchable.pdf
//	doctools -pdf report.pdf -edits edits.json -output report_redacted.pdf
//	doctools -pdf scan.pdf -config config.yml -ocr -pages 1-3,5 -text scan.txt -hocr scan.hocr
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docai"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/export"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/pdfdoc"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/raster"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ratelimit"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/service"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/tessocr"
)

type yamlConfig struct {
	Engine            string   `yaml:"engine"`
	Renderer          string   `yaml:"renderer"`
	ProjectID         string   `yaml:"project_id"`
	Location          string   `yaml:"location"`
	ProcessorID       string   `yaml:"processor_id"`
	Credentials       string   `yaml:"credentials"`
	Languages         []string `yaml:"languages"`
	LayerName         string   `yaml:"layer_name"`
	MaxFileMB         int      `yaml:"max_file_mb"`
	RateWindowSeconds int      `yaml:"rate_window_seconds"`
	RateMaxCalls      int      `yaml:"rate_max_calls"`
}

// loadConfig reads the YAML recognition settings
func loadConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, err
	}
	return &yc, nil
}

// newEngine builds the recognition engine the config names and returns it
// together with its close function.
func newEngine(ctx context.Context, yc *yamlConfig, debugAPI io.Writer) (ocr.Engine, func() error, error) {
	switch yc.Engine {
	case "documentai", "":
		eng, err := docai.New(ctx, docai.Config{
			ProjectID:       yc.ProjectID,
			Location:        yc.Location,
			ProcessorID:     yc.ProcessorID,
			CredentialsFile: yc.Credentials,
			DebugWriter:     debugAPI,
		})
		if err != nil {
			return nil, nil, err
		}
		return eng, eng.Close, nil
	case "tesseract":
		if debugAPI != nil {
			fmt.Fprintln(os.Stderr, "Warning: -debug-api only applies to the documentai engine")
		}
		cfg := tessocr.DefaultConfig()
		if len(yc.Languages) > 0 {
			cfg.Languages = yc.Languages
		}
		eng, err := tessocr.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return eng, eng.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q (want documentai or tesseract)", yc.Engine)
	}
}

// parsePageRanges turns 1-based ranges like "1-3,5" into zero-based page indices.
func parsePageRanges(spec string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = part[:i], part[i+1:]
		}
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}
		if start < 1 || end < start {
			return nil, fmt.Errorf("bad page range %q", part)
		}
		for p := start; p <= end; p++ {
			pages = append(pages, p-1)
		}
	}
	return pages, nil
}

func main() {
	// Required flags.
	pdfPath := flag.String("pdf", "", "Path to the input PDF file (required)")

	// Edit flags.
	editsPath := flag.String("edits", "", "Path to a JSON edit-set file")

	// OCR flags.
	runOCR := flag.Bool("ocr", false, "Run text recognition over the document pages")
	configPath := flag.String("config", "", "Path to the config YAML file (required with -ocr)")
	pagesSpec := flag.String("pages", "", "1-based page ranges to recognize, e.g. \"1-3,5\" (default all pages)")
	langSpec := flag.String("lang", "", "Comma-separated recognition language hints")
	scale := flag.Float64("scale", 0, "Render density in pixels per point (default 2.0)")
	embed := flag.Bool("embed", false, "Embed recognized text as an invisible searchable layer")
	force := flag.Bool("force", false, "Embed even when the document already carries a text layer")
	skipText := flag.Bool("skip-text", false, "Reuse embedded page text instead of calling the engine")
	debugAPIPath := flag.String("debug-api", "", "Path to save raw recognition API responses as JSON")

	// Output flags.
	outputPath := flag.String("output", "", "Path to save the processed PDF")
	textPath := flag.String("text", "", "Path to save recognized plain text")
	hocrPath := flag.String("hocr", "", "Path to save recognized text as hOCR")
	imagesDir := flag.String("images", "", "Directory to save rendered page images")

	// Other flags.
	optimize := flag.Bool("optimize", false, "Compact the exported PDF")
	overwriteOutput := flag.Bool("overwrite", false, "Overwrite the output PDF if it already exists")
	clientID := flag.String("client", "cli", "Rate-limit client identifier")

	flag.Parse()

	// Create a map of provided flags to validate
	providedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		providedFlags[f.Name] = true
	})

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -pdf flag is required")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate that provided path flags have values
	hasError := false
	validateFlag := func(name string, value string) {
		if providedFlags[name] && value == "" {
			fmt.Fprintf(os.Stderr, "Error: -%s flag requires a value\n", name)
			hasError = true
		}
	}

	validateFlag("edits", *editsPath)
	validateFlag("config", *configPath)
	validateFlag("debug-api", *debugAPIPath)
	validateFlag("output", *outputPath)
	validateFlag("text", *textPath)
	validateFlag("hocr", *hocrPath)
	validateFlag("images", *imagesDir)

	if hasError {
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if at least one output flag is provided
	hasOutputFlag := providedFlags["output"] || providedFlags["text"] ||
		providedFlags["hocr"] || providedFlags["images"]
	if !hasOutputFlag {
		fmt.Fprintln(os.Stderr, "Error: At least one output flag must be provided (-output, -text, -hocr, or -images)")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Recognition outputs need recognition to run.
	if !*runOCR && (*textPath != "" || *hocrPath != "" || *debugAPIPath != "") {
		fmt.Fprintln(os.Stderr, "Error: -text, -hocr and -debug-api require -ocr")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *runOCR && *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -ocr requires -config with the engine settings")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *outputPath != "" {
		if _, err := os.Stat(*outputPath); err == nil {
			if !*overwriteOutput {
				fmt.Printf("Output file %s already exists. Use -overwrite to overwrite.\n", *outputPath)
				os.Exit(1)
			}
			os.Remove(*outputPath)
		}
	}

	var pages []int
	if *pagesSpec != "" {
		var err error
		pages, err = parsePageRanges(*pagesSpec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -pages: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	// Read PDF bytes from disk.
	pdfBytes, err := os.ReadFile(*pdfPath)
	if err != nil {
		log.Fatalf("Failed to read PDF file: %v", err)
	}

	// Read the edit set if flag is provided.
	var edits service.EditSet
	if *editsPath != "" {
		editsJSON, err := os.ReadFile(*editsPath)
		if err != nil {
			log.Fatalf("Failed to read edits file: %v", err)
		}
		if err := json.Unmarshal(editsJSON, &edits); err != nil {
			log.Fatalf("Failed to parse edits file: %v", err)
		}
	}

	// Load config from file and build the engine when recognition is requested.
	var yc *yamlConfig
	svcCfg := service.Config{Optimize: *optimize}
	if *configPath != "" {
		yc, err = loadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		svcCfg.LayerName = yc.LayerName
		if yc.MaxFileMB > 0 {
			svcCfg.MaxFileBytes = int64(yc.MaxFileMB) << 20
		}
	}

	var renderer raster.Renderer = raster.NewPopplerRenderer()
	if yc != nil && yc.Renderer == "blank" {
		renderer = &raster.BlankRenderer{}
	}
	svcCfg.Renderer = renderer

	if *runOCR {
		var debugAPI io.Writer
		if *debugAPIPath != "" {
			f, err := os.Create(*debugAPIPath)
			if err != nil {
				log.Fatalf("Failed to create debug API file: %v", err)
			}
			defer f.Close()
			debugAPI = f
		}

		engine, closeEngine, err := newEngine(ctx, yc, debugAPI)
		if err != nil {
			log.Fatalf("Failed to set up recognition engine: %v", err)
		}
		defer closeEngine()
		svcCfg.Engine = engine

		limCfg := ratelimit.DefaultConfig()
		if yc.RateWindowSeconds > 0 {
			limCfg.Window = time.Duration(yc.RateWindowSeconds) * time.Second
		}
		if yc.RateMaxCalls > 0 {
			limCfg.Max = yc.RateMaxCalls
		}
		limiter := ratelimit.New(limCfg)
		defer limiter.Close()
		svcCfg.Limiter = limiter
	}

	svc := service.New(svcCfg)

	req := &service.Request{
		Document: pdfBytes,
		Edits:    edits,
		ClientID: *clientID,
	}
	if *runOCR {
		var hints []string
		for _, h := range strings.Split(*langSpec, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hints = append(hints, h)
			}
		}
		req.OCR = &service.OCRRequest{
			PageIndices:   pages,
			LanguageHints: hints,
			Scale:         *scale,
			EmbedText:     *embed,
			Force:         *force,
			SkipTextPages: *skipText,
		}
	}

	fmt.Println("Processing PDF file:", *pdfPath)
	resp, err := svc.Process(ctx, req)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	for _, w := range resp.Warnings {
		fmt.Println("Warning:", w)
	}
	if resp.OCR != nil {
		fmt.Printf("Recognized %d of %d pages with %s\n",
			resp.OCR.ProcessedPages, resp.OCR.TotalPages, resp.OCR.EngineName)
		for _, pe := range resp.OCR.Errors {
			fmt.Printf("Page %d failed: %s\n", pe.PageIndex+1, pe.Message)
		}
		if *debugAPIPath != "" {
			fmt.Println("Raw API responses saved to:", *debugAPIPath)
		}
	}

	// Write the processed PDF if flag is provided.
	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, resp.Document, 0644); err != nil {
			log.Fatalf("Failed to write PDF output: %v", err)
		}
		fmt.Println("Processed PDF saved to:", *outputPath)
	}

	// Write recognized text output if flag is provided.
	if *textPath != "" {
		if err := os.WriteFile(*textPath, []byte(export.PlainText(resp.OCR)), 0644); err != nil {
			log.Fatalf("Failed to write text output: %v", err)
		}
		fmt.Println("Document text saved to:", *textPath)
	}

	// Write hOCR output if flag is provided.
	if *hocrPath != "" {
		hocrHTML := export.HOCR(filepath.Base(*pdfPath), resp.OCR)
		if err := os.WriteFile(*hocrPath, []byte(hocrHTML), 0644); err != nil {
			log.Fatalf("Failed to write hOCR output: %v", err)
		}
		fmt.Println("Rendered hOCR output saved to:", *hocrPath)
	}

	// Render and write page images if flag is provided.
	if *imagesDir != "" {
		if err := os.MkdirAll(*imagesDir, 0755); err != nil {
			log.Fatalf("Failed to create images directory: %v", err)
		}
		doc, err := pdfdoc.Load(resp.Document)
		if err != nil {
			log.Fatalf("Failed to reload processed PDF: %v", err)
		}
		all := make([]int, doc.PageCount())
		for i := range all {
			all[i] = i
		}
		frames, err := export.PageImages(ctx, renderer, resp.Document, all, *scale)
		if err != nil {
			log.Fatalf("Failed to render page images: %v", err)
		}
		for _, frame := range frames {
			imagePath := filepath.Join(*imagesDir, fmt.Sprintf("page_%d.png", frame.PageIndex+1))
			if err := os.WriteFile(imagePath, frame.PNG, 0644); err != nil {
				log.Fatalf("Failed to write image for page %d: %v", frame.PageIndex+1, err)
			}
			fmt.Printf("Saved image for page %d to %s\n", frame.PageIndex+1, imagePath)
		}
	}
}
