package hocr

// Element classes defined by the hOCR format.
const (
	ClassPage      = "ocr_page"
	ClassArea      = "ocr_carea"
	ClassParagraph = "ocr_par"
	ClassLine      = "ocr_line"
	ClassWord      = "ocrx_word"
)

// Document is a whole hOCR document.
type Document struct {
	Title    string            // head title element
	Language string            // document language, from the html lang attribute or dc.language
	System   string            // ocr-system metadata, the producing engine
	Metadata map[string]string // remaining ocr-* head metadata
	Pages    []Page
}

// Page is one recognized page, class 'ocr_page'.
type Page struct {
	ID         string
	Title      string // raw title attribute as parsed
	Number     int    // ppageno property
	Image      string // source image reference from the image property
	Lang       string
	BBox       BBox
	Areas      []Area
	Paragraphs []Paragraph // paragraphs with no area parent
	Lines      []Line      // lines with no paragraph parent
	Metadata   map[string]string
}

// Area is a content area or column, class 'ocr_carea'.
type Area struct {
	ID         string
	Lang       string
	BBox       BBox
	Paragraphs []Paragraph
	Lines      []Line // lines with no paragraph parent
	Words      []Word // words with no line parent
	Metadata   map[string]string
}

// Paragraph is one paragraph, class 'ocr_par'.
type Paragraph struct {
	ID       string
	Lang     string
	BBox     BBox
	Lines    []Line
	Words    []Word // words with no line parent
	Metadata map[string]string
}

// Line is one line of text, class 'ocr_line'.
type Line struct {
	ID       string
	Lang     string
	BBox     BBox
	Baseline string // raw baseline property
	Words    []Word
	Metadata map[string]string
}

// Word is one recognized word, class 'ocrx_word'. Confidence is the x_wconf
// value on the 0-100 scale the format uses.
type Word struct {
	ID         string
	Text       string
	Lang       string
	BBox       BBox
	Confidence float64
	Metadata   map[string]string
}

// BBox is a pixel rectangle in image coordinates, top-left origin,
// as stored in a bbox title property: x1 y1 x2 y2.
type BBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Width returns the box width in pixels.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Empty reports whether the box has no area.
func (b BBox) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }
