package pdfdoc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/easyjpgtopdf/DocTools-sub005/pkg/docerr"
)

// Optional-content group declarations take several concrete shapes in the
// wild; all of them are probed so layer detection survives writer variance.
var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`<</Type/OCG/Name\(([^)]+)\)`),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`/Name\s*\(([^)]+)\)[\s\S]{1,50}/Type\s*/OCG`),
}

// DetectLayers returns the optional-content layer names declared in the raw
// PDF bytes, deduplicated in discovery order.
func DetectLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, docerr.New(docerr.Validation, "document bytes are empty")
	}

	content := string(pdfData)
	var layers []string
	for _, pattern := range ocgPatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			if len(match) >= 2 {
				layers = append(layers, unescapePDFName(match[1]))
			}
		}
	}

	for i, layer := range layers {
		if decoded, ok := decodeUTF16BE(layer); ok {
			layers[i] = decoded
		}
	}

	unique := make([]string, 0, len(layers))
	seen := make(map[string]bool, len(layers))
	for _, l := range layers {
		if !seen[l] {
			seen[l] = true
			unique = append(unique, l)
		}
	}
	return unique, nil
}

// LayerCheck reports whether a document already carries an OCR text layer.
type LayerCheck struct {
	Layers       []string // all detected layer names
	HasOCRLayer  bool     // a layer matching the given base name exists
	OCRLayerName string   // the matching layer's full name
	Warnings     []string // layers that look OCR-related without matching
}

// CheckOCRLayers scans raw PDF bytes for layers produced by an earlier OCR
// pass. Both the bare base name and its per-page form "name (Page N)" count
// as a match; other layers mentioning OCR are surfaced as warnings so the
// caller can decide.
func CheckOCRLayers(pdfData []byte, layerName string) (LayerCheck, error) {
	result := LayerCheck{}

	layers, err := DetectLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}
	result.Layers = layers

	pagePattern := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+.*`, regexp.QuoteMeta(layerName)))
	for _, layer := range layers {
		if layer == layerName || pagePattern.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}
		if strings.Contains(strings.ToLower(layer), "ocr") && !strings.HasPrefix(layer, layerName) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("existing layer may already contain OCR: %s", layer))
		}
	}
	return result, nil
}

func unescapePDFName(s string) string {
	s = strings.ReplaceAll(s, `\(`, "(")
	s = strings.ReplaceAll(s, `\)`, ")")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// decodeUTF16BE decodes a big-endian UTF-16 string if it starts with the
// BOM PDF writers use for non-Latin layer names.
func decodeUTF16BE(s string) (string, bool) {
	b := []byte(s)
	if len(b) < 2 || b[0] != 0xFE || b[1] != 0xFF {
		return "", false
	}
	b = b[2:]
	var runes []rune
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), true
}
