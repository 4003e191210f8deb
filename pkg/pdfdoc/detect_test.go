package pdfdoc

import (
	"reflect"
	"strings"
	"testing"
)

func TestDetectLayers(t *testing.T) {
	raw := []byte(`%PDF-1.4
1 0 obj
<< /Name (Sidebar) /Intent /View /Type /OCG >>
endobj
2 0 obj
<</Type /OCG /Name (Background)>>
endobj
3 0 obj
<</Type /OCG /Name (Background)>>
endobj
4 0 obj
<</Type/OCG/Name(Watermark)>>
endobj`)

	layers, err := DetectLayers(raw)
	if err != nil {
		t.Fatalf("DetectLayers: %v", err)
	}
	want := []string{"Background", "Watermark", "Sidebar"}
	if !reflect.DeepEqual(layers, want) {
		t.Errorf("layers = %v, want %v", layers, want)
	}
}

func TestDetectLayersEmptyInput(t *testing.T) {
	if _, err := DetectLayers(nil); err == nil {
		t.Error("DetectLayers(nil) accepted, want error")
	}
}

func TestDetectLayersDecodesUTF16Names(t *testing.T) {
	// Writers emit non-ASCII layer names as UTF-16BE with a BOM.
	raw := []byte("<</Type /OCG /Name (\xFE\xFF\x00S\x00c\x00a\x00n)>>")
	layers, err := DetectLayers(raw)
	if err != nil {
		t.Fatalf("DetectLayers: %v", err)
	}
	if len(layers) != 1 || layers[0] != "Scan" {
		t.Errorf("layers = %q, want [Scan]", layers)
	}
}

func TestCheckOCRLayers(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		wantHas      bool
		wantWarnings int
	}{
		{
			name:    "exact match",
			raw:     `<</Type /OCG /Name (OCR Text)>>`,
			wantHas: true,
		},
		{
			name:    "per page form",
			raw:     `<</Type /OCG /Name (OCR Text \(Page 3\))>>`,
			wantHas: true,
		},
		{
			name:         "foreign ocr layer warns",
			raw:          `<</Type /OCG /Name (Tesseract OCR Output)>>`,
			wantHas:      false,
			wantWarnings: 1,
		},
		{
			name:    "unrelated layers",
			raw:     `<</Type /OCG /Name (Background)>>`,
			wantHas: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check, err := CheckOCRLayers([]byte(tc.raw), "OCR Text")
			if err != nil {
				t.Fatalf("CheckOCRLayers: %v", err)
			}
			if check.HasOCRLayer != tc.wantHas {
				t.Errorf("HasOCRLayer = %v, want %v (layers %v)", check.HasOCRLayer, tc.wantHas, check.Layers)
			}
			if tc.wantHas && !strings.HasPrefix(check.OCRLayerName, "OCR Text") {
				t.Errorf("OCRLayerName = %q, want OCR Text prefix", check.OCRLayerName)
			}
			if len(check.Warnings) != tc.wantWarnings {
				t.Errorf("warnings = %v, want %d", check.Warnings, tc.wantWarnings)
			}
		})
	}
}

func TestUnescapePDFName(t *testing.T) {
	if got := unescapePDFName(`Scan \(raw\)`); got != "Scan (raw)" {
		t.Errorf("unescapePDFName = %q, want %q", got, "Scan (raw)")
	}
	if got := unescapePDFName(`C:\\scans`); got != `C:\scans` {
		t.Errorf("unescapePDFName = %q, want %q", got, `C:\scans`)
	}
}

func TestDecodeUTF16BE(t *testing.T) {
	if got, ok := decodeUTF16BE("\xFE\xFF\x00O\x00K"); !ok || got != "OK" {
		t.Errorf("decodeUTF16BE = %q, %v, want OK, true", got, ok)
	}
	if _, ok := decodeUTF16BE("plain"); ok {
		t.Error("decodeUTF16BE accepted text without a BOM")
	}
}
