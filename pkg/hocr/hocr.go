// Package hocr reads and writes hOCR, the HTML-based interchange format for
// OCR results.
//
// This package provides:
//
// - An object model for the hOCR hierarchy
// - Parse, which turns hOCR HTML into the object model
// - Generate, which renders the object model back to hOCR HTML
// - Bridges between the object model and the recognition model in pkg/ocr
//
// The model follows the element hierarchy the format defines:
// Document → Pages → Areas → Paragraphs → Lines → Words, each carrying a
// pixel bounding box from its bbox title property. Coordinates are image
// pixels with a top-left origin, exactly as they appear in the HTML; mapping
// into document space is the bridge's job, not the parser's.
//
// Key Types:
//
// - Document: a whole hOCR document with head metadata
// - Page: one page, class 'ocr_page'
// - Area: a content area or column, class 'ocr_carea'
// - Paragraph: class 'ocr_par'
// - Line: class 'ocr_line'
// - Word: class 'ocrx_word', with its x_wconf confidence
// - BBox: a pixel rectangle from a bbox property
package hocr
