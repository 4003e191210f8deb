package pdfdoc

import (
	"strings"
	"unicode/utf8"
)

// Font identifies one of the standard base fonts every PDF reader ships.
// Only this set is guaranteed; anything else resolves to a fallback.
type Font struct {
	family string // writer family: Helvetica, Times or Courier
	style  string // "" for regular, "B" for bold
}

// The guaranteed font set.
var (
	Helvetica     = Font{family: "Helvetica"}
	HelveticaBold = Font{family: "Helvetica", style: "B"}
	TimesRoman    = Font{family: "Times"}
	TimesBold     = Font{family: "Times", style: "B"}
	Courier       = Font{family: "Courier"}
	CourierBold   = Font{family: "Courier", style: "B"}
)

// Name returns the PostScript name of the font.
func (f Font) Name() string {
	switch f.family {
	case "Times":
		if f.style == "B" {
			return "Times-Bold"
		}
		return "Times-Roman"
	case "Courier":
		if f.style == "B" {
			return "Courier-Bold"
		}
		return "Courier"
	default:
		if f.style == "B" {
			return "Helvetica-Bold"
		}
		return "Helvetica"
	}
}

// ResolveFont maps a requested font name onto the guaranteed set. Matching
// is lenient: case, spaces and hyphens are ignored, Arial is treated as
// Helvetica and Times New Roman as Times. Unknown names fall back to
// Helvetica rather than failing the edit.
func ResolveFont(name string) Font {
	key := strings.ToLower(name)
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "-", "")

	bold := strings.Contains(key, "bold")
	switch {
	case strings.Contains(key, "courier"):
		if bold {
			return CourierBold
		}
		return Courier
	case strings.Contains(key, "times"):
		if bold {
			return TimesBold
		}
		return TimesRoman
	default:
		if bold {
			return HelveticaBold
		}
		return Helvetica
	}
}

// Per-character width factors relative to the font size. True metrics are
// not available without embedding the font program, so widths are estimated
// from the family class: monospace glyphs average 0.60 of the size, serif
// 0.50 and sans-serif 0.55. A documented approximation, good enough to size
// cover boxes.
func (f Font) widthFactor() float64 {
	switch f.family {
	case "Courier":
		return 0.60
	case "Times":
		return 0.50
	default:
		return 0.55
	}
}

// EstimateWidth approximates the rendered width of text at the given size
// in points.
func EstimateWidth(text string, f Font, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * f.widthFactor() * size
}
