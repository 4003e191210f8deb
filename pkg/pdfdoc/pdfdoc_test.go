package pdfdoc

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/geom"
	"github.com/easyjpgtopdf/DocTools-sub005/pkg/ocr"
)

// pngImage returns an opaque white PNG of the given pixel size.
func pngImage(t *testing.T, w, h int) []byte {
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

// newTestDoc builds a real multi-page document by assembling page images,
// serializing them and loading the result back. Page i is (100+10*i)x140pt
// so tests can track pages across structural edits by width.
func newTestDoc(t *testing.T, pages int) *Document {
	t.Helper()
	images := make([][]byte, pages)
	for i := range images {
		images[i] = pngImage(t, 100+10*i, 140)
	}
	assembled, err := NewFromImages(images, 1.0)
	if err != nil {
		t.Fatalf("NewFromImages: %v", err)
	}
	data, err := assembled.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return doc
}

func pageWidths(t *testing.T, d *Document) []float64 {
	t.Helper()
	widths := make([]float64, d.PageCount())
	for i := range widths {
		p, err := d.Page(i)
		if err != nil {
			t.Fatalf("Page(%d): %v", i, err)
		}
		widths[i] = p.Width()
	}
	return widths
}

func TestLoadRejectsEmptyAndCorrupt(t *testing.T) {
	if _, err := Load(nil); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("Load(nil) = %v, want %s", err, docerr.Validation)
	}
	if _, err := Load([]byte("%PDF-1.4 not actually a pdf")); !docerr.HasCode(err, docerr.PDFCorrupted) {
		t.Errorf("Load(garbage) = %v, want %s", err, docerr.PDFCorrupted)
	}
}

func TestNewFromImagesDimensions(t *testing.T) {
	doc, err := NewFromImages([][]byte{pngImage(t, 200, 400)}, 2.0)
	if err != nil {
		t.Fatalf("NewFromImages: %v", err)
	}
	p, _ := doc.Page(0)
	if p.Width() != 100 || p.Height() != 200 {
		t.Errorf("page dims = %gx%g, want 100x200", p.Width(), p.Height())
	}
	if p.SourceIndex() != -1 {
		t.Errorf("SourceIndex = %d, want -1 for assembled page", p.SourceIndex())
	}
	if len(p.Ops()) != 1 {
		t.Fatalf("ops = %d, want the page image", len(p.Ops()))
	}
	img, ok := p.Ops()[0].(ImageOp)
	if !ok {
		t.Fatalf("op type = %T, want ImageOp", p.Ops()[0])
	}
	if img.format != "PNG" {
		t.Errorf("sniffed format = %q, want PNG", img.format)
	}
}

func TestNewFromImagesRejectsBadInput(t *testing.T) {
	if _, err := NewFromImages(nil, 2.0); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("no images: %v, want %s", err, docerr.Validation)
	}
	if _, err := NewFromImages([][]byte{pngImage(t, 10, 10)}, 0); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("zero scale: %v, want %s", err, docerr.Validation)
	}
	if _, err := NewFromImages([][]byte{[]byte("not an image")}, 2.0); !docerr.HasCode(err, docerr.InvalidImage) {
		t.Errorf("garbage image: %v, want %s", err, docerr.InvalidImage)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	doc := newTestDoc(t, 2)
	if doc.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", doc.PageCount())
	}
	got := pageWidths(t, doc)
	if got[0] != 100 || got[1] != 110 {
		t.Errorf("widths = %v, want [100 110]", got)
	}

	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("serialized document lacks PDF header")
	}
}

func TestSaveEmptyDocumentFails(t *testing.T) {
	d := &Document{}
	if _, err := d.Save(); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("Save on empty document = %v, want %s", err, docerr.Validation)
	}
}

func TestRotatePage(t *testing.T) {
	doc := newTestDoc(t, 1)

	if err := doc.RotatePage(0, 45); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("rotate by 45 = %v, want %s", err, docerr.Validation)
	}
	if err := doc.RotatePage(5, 90); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("rotate page 5 = %v, want %s", err, docerr.Validation)
	}

	steps := []struct {
		delta int
		want  int
	}{
		{90, 90},
		{270, 0},
		{-90, 270},
		{180, 90},
		{360, 90},
	}
	for _, s := range steps {
		if err := doc.RotatePage(0, s.delta); err != nil {
			t.Fatalf("RotatePage(0, %d): %v", s.delta, err)
		}
		p, _ := doc.Page(0)
		if p.Rotation() != s.want {
			t.Errorf("after delta %d rotation = %d, want %d", s.delta, p.Rotation(), s.want)
		}
	}

	// A rotated document still serializes and validates.
	if _, err := doc.Save(); err != nil {
		t.Errorf("Save after rotation: %v", err)
	}
}

func TestSaveRotatedPageGeometry(t *testing.T) {
	// A quarter turn must swap the written page box so the rotated content
	// fits it; a half turn keeps the box. The fixture page is 100x140pt.
	cases := []struct {
		delta        int
		wantW, wantH float64
	}{
		{90, 140, 100},
		{180, 100, 140},
		{270, 140, 100},
	}
	for _, tc := range cases {
		doc := newTestDoc(t, 1)
		if err := doc.RotatePage(0, tc.delta); err != nil {
			t.Fatalf("RotatePage(0, %d): %v", tc.delta, err)
		}
		data, err := doc.Save()
		if err != nil {
			t.Fatalf("Save after %d degrees: %v", tc.delta, err)
		}
		out, err := Load(data)
		if err != nil {
			t.Fatalf("Load after %d degrees: %v", tc.delta, err)
		}
		p, err := out.Page(0)
		if err != nil {
			t.Fatalf("Page(0): %v", err)
		}
		if math.Abs(p.Width()-tc.wantW) > 0.5 || math.Abs(p.Height()-tc.wantH) > 0.5 {
			t.Errorf("rotated %d: page box = %gx%g, want %gx%g",
				tc.delta, p.Width(), p.Height(), tc.wantW, tc.wantH)
		}
	}
}

func TestDeletePages(t *testing.T) {
	doc := newTestDoc(t, 3)

	if err := doc.DeletePages([]int{3}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("delete out of range = %v, want %s", err, docerr.Validation)
	}
	if err := doc.DeletePages([]int{0, 1, 2}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("delete all pages = %v, want %s", err, docerr.Validation)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("failed delete mutated the document, %d pages left", doc.PageCount())
	}

	// Duplicates collapse to one removal.
	if err := doc.DeletePages([]int{1, 1}); err != nil {
		t.Fatalf("DeletePages: %v", err)
	}
	got := pageWidths(t, doc)
	if len(got) != 2 || got[0] != 100 || got[1] != 120 {
		t.Errorf("widths after delete = %v, want [100 120]", got)
	}

	// Surviving pages keep their source content across serialization.
	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save after delete: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load after delete: %v", err)
	}
	if got := pageWidths(t, reloaded); got[0] != 100 || got[1] != 120 {
		t.Errorf("reloaded widths = %v, want [100 120]", got)
	}
}

func TestReorder(t *testing.T) {
	doc := newTestDoc(t, 3)

	if err := doc.Reorder([]int{0, 1}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("short order = %v, want %s", err, docerr.Validation)
	}
	if err := doc.Reorder([]int{0, 0, 1}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("duplicate order = %v, want %s", err, docerr.Validation)
	}
	if err := doc.Reorder([]int{0, 1, 3}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("out of range order = %v, want %s", err, docerr.Validation)
	}

	if err := doc.Reorder([]int{2, 0, 1}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	got := pageWidths(t, doc)
	if got[0] != 120 || got[1] != 100 || got[2] != 110 {
		t.Errorf("widths after reorder = %v, want [120 100 110]", got)
	}
}

func TestExtract(t *testing.T) {
	doc := newTestDoc(t, 3)

	if _, err := doc.Extract(nil); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("extract nothing = %v, want %s", err, docerr.Validation)
	}
	if _, err := doc.Extract([]int{7}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("extract out of range = %v, want %s", err, docerr.Validation)
	}

	// The same page may appear twice.
	sub, err := doc.Extract([]int{2, 0, 2})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got := pageWidths(t, sub)
	if len(got) != 3 || got[0] != 120 || got[1] != 100 || got[2] != 120 {
		t.Errorf("extracted widths = %v, want [120 100 120]", got)
	}

	// Extracted pages are copies; edits to them leave the source alone.
	if err := sub.RotatePage(0, 90); err != nil {
		t.Fatalf("RotatePage on extract: %v", err)
	}
	orig, _ := doc.Page(2)
	if orig.Rotation() != 0 {
		t.Error("rotating an extracted page mutated the source document")
	}

	data, err := sub.Save()
	if err != nil {
		t.Fatalf("Save extract: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load extract: %v", err)
	}
	if reloaded.PageCount() != 3 {
		t.Errorf("extract page count = %d, want 3", reloaded.PageCount())
	}
}

func TestInsertBlank(t *testing.T) {
	doc := newTestDoc(t, 1)

	if err := doc.InsertBlank(-2); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("insert after -2 = %v, want %s", err, docerr.Validation)
	}
	if err := doc.InsertBlank(1); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("insert after last+1 = %v, want %s", err, docerr.Validation)
	}

	if err := doc.InsertBlank(-1); err != nil {
		t.Fatalf("InsertBlank(-1): %v", err)
	}
	front, _ := doc.Page(0)
	if front.Width() != A4Width || front.Height() != A4Height {
		t.Errorf("blank dims = %gx%g, want A4", front.Width(), front.Height())
	}
	if front.SourceIndex() != -1 {
		t.Errorf("blank SourceIndex = %d, want -1", front.SourceIndex())
	}

	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save with blank: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load with blank: %v", err)
	}
	if got := pageWidths(t, reloaded); len(got) != 2 || got[0] != A4Width || got[1] != 100 {
		t.Errorf("reloaded widths = %v, want [595 100]", got)
	}
}

func TestDrawValidation(t *testing.T) {
	doc, err := NewFromImages([][]byte{pngImage(t, 100, 140)}, 1.0)
	if err != nil {
		t.Fatalf("NewFromImages: %v", err)
	}
	box := geom.Rect{X: 10, Y: 10, W: 30, H: 20}

	cases := []struct {
		name string
		op   DrawOp
		code docerr.Code
	}{
		{"fill empty rect", FillRectOp{Rect: geom.Rect{X: 1, Y: 1}, Alpha: 1}, docerr.Validation},
		{"fill alpha zero", FillRectOp{Rect: box}, docerr.Validation},
		{"fill alpha above one", FillRectOp{Rect: box, Alpha: 1.5}, docerr.Validation},
		{"stroke negative width", StrokeRectOp{Rect: box, Width: -1}, docerr.Validation},
		{"text blank", TextOp{Text: "   ", At: geom.Point{X: 5, Y: 5}, Size: 10, Alpha: 1}, docerr.Validation},
		{"text zero size", TextOp{Text: "x", At: geom.Point{X: 5, Y: 5}, Alpha: 1}, docerr.Validation},
		{"line negative width", LineOp{From: geom.Point{}, To: geom.Point{X: 9}, Width: -2}, docerr.Validation},
		{"circle zero radius", CircleOp{Center: geom.Point{X: 5, Y: 5}}, docerr.Validation},
		{"image no data", ImageOp{Rect: box}, docerr.Validation},
		{"image garbage", ImageOp{Data: []byte("nope"), Rect: box}, docerr.InvalidImage},
	}
	for _, tc := range cases {
		if err := doc.Draw(0, tc.op); !docerr.HasCode(err, tc.code) {
			t.Errorf("%s: err = %v, want %s", tc.name, err, tc.code)
		}
	}

	if err := doc.Draw(3, FillRectOp{Rect: box, Alpha: 1}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("draw on missing page = %v, want %s", err, docerr.Validation)
	}

	p, _ := doc.Page(0)
	if len(p.Ops()) != 1 {
		t.Errorf("rejected ops were queued, got %d ops", len(p.Ops()))
	}
}

func TestDrawQueuesInCallOrder(t *testing.T) {
	doc := newTestDoc(t, 1)
	box := geom.Rect{X: 10, Y: 100, W: 50, H: 14}

	ops := []DrawOp{
		FillRectOp{Rect: box, Color: White, Alpha: 1},
		TextOp{Text: "Paid", At: geom.Point{X: 12, Y: 103}, Font: HelveticaBold, Size: 11, Alpha: 1},
		LineOp{From: geom.Point{X: 10, Y: 98}, To: geom.Point{X: 60, Y: 98}, Width: 1},
	}
	for _, op := range ops {
		if err := doc.Draw(0, op); err != nil {
			t.Fatalf("Draw(%T): %v", op, err)
		}
	}

	p, _ := doc.Page(0)
	if len(p.Ops()) != 3 {
		t.Fatalf("queued ops = %d, want 3", len(p.Ops()))
	}
	if _, ok := p.Ops()[0].(FillRectOp); !ok {
		t.Errorf("op 0 = %T, want FillRectOp", p.Ops()[0])
	}
	if _, ok := p.Ops()[1].(TextOp); !ok {
		t.Errorf("op 1 = %T, want TextOp", p.Ops()[1])
	}
	if _, ok := p.Ops()[2].(LineOp); !ok {
		t.Errorf("op 2 = %T, want LineOp", p.Ops()[2])
	}

	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save with draws: %v", err)
	}
	if _, err := Load(data); err != nil {
		t.Errorf("document with draws fails validation: %v", err)
	}
}

func TestSaveRendersAllOpKinds(t *testing.T) {
	doc := newTestDoc(t, 1)
	box := geom.Rect{X: 10, Y: 60, W: 40, H: 20}

	ops := []DrawOp{
		FillRectOp{Rect: box, Color: Color{R: 255, G: 255, B: 0}, Alpha: 0.3},
		StrokeRectOp{Rect: box, Color: Color{R: 200}, Width: 1.5},
		TextOp{Text: "Approved", At: geom.Point{X: 12, Y: 64}, Font: TimesBold, Size: 12, Alpha: 1},
		LineOp{From: geom.Point{X: 10, Y: 55}, To: geom.Point{X: 50, Y: 55}, Width: 0.8},
		CircleOp{Center: geom.Point{X: 70, Y: 70}, Radius: 6, Fill: true},
		ImageOp{Data: pngImage(t, 20, 20), Rect: geom.Rect{X: 60, Y: 10, W: 20, H: 20}},
	}
	for _, op := range ops {
		if err := doc.Draw(0, op); err != nil {
			t.Fatalf("Draw(%T): %v", op, err)
		}
	}

	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(data); err != nil {
		t.Errorf("rendered document fails validation: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"", Color{}, false},
		{"#ff8000", Color{R: 255, G: 128, B: 0}, false},
		{"0a0b0c", Color{R: 10, G: 11, B: 12}, false},
		{"#fff", Color{}, true},
		{"zzzzzz", Color{}, true},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) accepted, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseColor(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestColorJSON(t *testing.T) {
	out, err := json.Marshal(Color{R: 255, G: 128, B: 0})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"#ff8000"` {
		t.Errorf("marshal = %s, want \"#ff8000\"", out)
	}

	cases := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{`"#00ff00"`, Color{G: 255}, false},
		{`"336699"`, Color{R: 0x33, G: 0x66, B: 0x99}, false},
		{`{"r":10,"g":20,"b":30}`, Color{R: 10, G: 20, B: 30}, false},
		{`"#bad"`, Color{}, true},
	}
	for _, tc := range cases {
		var got Color
		err := json.Unmarshal([]byte(tc.in), &got)
		if tc.wantErr {
			if err == nil {
				t.Errorf("unmarshal %s accepted, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("unmarshal %s: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("unmarshal %s = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestResolveFont(t *testing.T) {
	cases := []struct {
		in   string
		want Font
	}{
		{"Helvetica", Helvetica},
		{"helvetica-bold", HelveticaBold},
		{"Arial", Helvetica},
		{"Arial Bold", HelveticaBold},
		{"Times New Roman", TimesRoman},
		{"Times-Bold", TimesBold},
		{"courier", Courier},
		{"Courier Bold", CourierBold},
		{"", Helvetica},
		{"Comic Sans", Helvetica},
	}
	for _, tc := range cases {
		if got := ResolveFont(tc.in); got != tc.want {
			t.Errorf("ResolveFont(%q) = %s, want %s", tc.in, got.Name(), tc.want.Name())
		}
	}
}

func TestFontNames(t *testing.T) {
	cases := []struct {
		font Font
		want string
	}{
		{Helvetica, "Helvetica"},
		{HelveticaBold, "Helvetica-Bold"},
		{TimesRoman, "Times-Roman"},
		{TimesBold, "Times-Bold"},
		{Courier, "Courier"},
		{CourierBold, "Courier-Bold"},
	}
	for _, tc := range cases {
		if got := tc.font.Name(); got != tc.want {
			t.Errorf("Name() = %q, want %q", got, tc.want)
		}
	}
}

func TestEstimateWidth(t *testing.T) {
	cases := []struct {
		font Font
		want float64
	}{
		{Courier, 24},
		{TimesRoman, 20},
		{Helvetica, 22},
	}
	for _, tc := range cases {
		if got := EstimateWidth("abcd", tc.font, 10); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("EstimateWidth(abcd, %s, 10) = %g, want %g", tc.font.Name(), got, tc.want)
		}
	}
	// Width counts runes, not bytes.
	if got := EstimateWidth("äöü", Helvetica, 10); math.Abs(got-16.5) > 1e-9 {
		t.Errorf("EstimateWidth(äöü) = %g, want 16.5", got)
	}
}

func TestSetOCRLayerDefaultsAndClear(t *testing.T) {
	doc := newTestDoc(t, 1)
	words := []ocr.Word{
		{Text: "Invoice", Confidence: 0.98, Box: geom.Rect{X: 10, Y: 120, W: 40, H: 12}},
	}

	if err := doc.SetOCRLayer(3, words, LayerConfig{}); !docerr.HasCode(err, docerr.Validation) {
		t.Errorf("layer on missing page = %v, want %s", err, docerr.Validation)
	}

	if err := doc.SetOCRLayer(0, words, LayerConfig{}); err != nil {
		t.Fatalf("SetOCRLayer: %v", err)
	}
	p, _ := doc.Page(0)
	if p.layer == nil {
		t.Fatal("layer not queued")
	}
	cfg := p.layer.cfg
	if cfg.Name != "OCR Text" || cfg.FontSize != 10 || cfg.AscentRatio != 0.718 {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	// The queued words are a copy.
	words[0].Text = "mutated"
	if p.layer.words[0].Text != "Invoice" {
		t.Error("layer aliases the caller's word slice")
	}

	if err := doc.SetOCRLayer(0, nil, LayerConfig{}); err != nil {
		t.Fatalf("clear layer: %v", err)
	}
	if p.layer != nil {
		t.Error("empty word list did not clear the layer")
	}
}

func TestSaveEmbedsSearchableTextLayer(t *testing.T) {
	doc := newTestDoc(t, 1)
	words := []ocr.Word{
		{Text: "Invoice", Confidence: 0.97, Box: geom.Rect{X: 10, Y: 115, W: 42, H: 12}},
		{Text: "4711", Confidence: 0.95, Box: geom.Rect{X: 56, Y: 115, W: 24, H: 12}},
	}
	if err := doc.SetOCRLayer(0, words, LayerConfig{}); err != nil {
		t.Fatalf("SetOCRLayer: %v", err)
	}

	data, err := doc.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(data); err != nil {
		t.Fatalf("layered document fails validation: %v", err)
	}

	check, err := CheckOCRLayers(data, "OCR Text")
	if err != nil {
		t.Fatalf("CheckOCRLayers: %v", err)
	}
	if !check.HasOCRLayer {
		t.Errorf("no OCR layer detected in output, layers = %v", check.Layers)
	}
	if !strings.HasPrefix(check.OCRLayerName, "OCR Text") {
		t.Errorf("layer name = %q, want OCR Text prefix", check.OCRLayerName)
	}
}

func TestSaveRejectsMostlyUnencodableLayer(t *testing.T) {
	doc := newTestDoc(t, 1)
	words := []ocr.Word{
		{Text: "請求書", Confidence: 0.9, Box: geom.Rect{X: 10, Y: 115, W: 40, H: 12}},
	}
	if err := doc.SetOCRLayer(0, words, LayerConfig{}); err != nil {
		t.Fatalf("SetOCRLayer: %v", err)
	}
	if _, err := doc.Save(); err == nil || !strings.Contains(err.Error(), "encoding") {
		t.Errorf("Save = %v, want encoding failure", err)
	}
}
