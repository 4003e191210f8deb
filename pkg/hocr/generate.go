package hocr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Capabilities advertised by generated documents.
const capabilities = "ocr_page ocr_carea ocr_par ocr_line ocrx_word"

// Generate renders the document as hOCR HTML. Element IDs present in the
// model are kept; missing ones are synthesized from element position, so a
// parsed document survives a generate round trip with its IDs intact.
func Generate(doc *Document) string {
	esc := html.EscapeString
	var b strings.Builder

	lang := doc.Language
	if lang == "" {
		lang = "unknown"
	}
	title := doc.Title
	if title == "" {
		title = "OCR Results"
	}
	system := doc.System
	if system == "" {
		system = "doctools"
	}

	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<!DOCTYPE html PUBLIC \"-//W3C//DTD XHTML 1.0 Transitional//EN\" \"http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd\">\n")
	fmt.Fprintf(&b, "<html xmlns=\"http://www.w3.org/1999/xhtml\" lang=\"%s\" xml:lang=\"%s\">\n", esc(lang), esc(lang))
	b.WriteString(" <head>\n")
	fmt.Fprintf(&b, "  <title>%s</title>\n", esc(title))
	b.WriteString("  <meta http-equiv=\"Content-Type\" content=\"text/html;charset=utf-8\"/>\n")
	fmt.Fprintf(&b, "  <meta name=\"ocr-system\" content=\"%s\"/>\n", esc(system))
	fmt.Fprintf(&b, "  <meta name=\"ocr-capabilities\" content=\"%s\"/>\n", capabilities)
	fmt.Fprintf(&b, "  <meta name=\"ocr-number-of-pages\" content=\"%d\"/>\n", len(doc.Pages))
	for _, k := range sortedKeys(doc.Metadata) {
		if k == "ocr-system" || k == "ocr-capabilities" || k == "ocr-number-of-pages" {
			continue
		}
		fmt.Fprintf(&b, "  <meta name=\"%s\" content=\"%s\"/>\n", esc(k), esc(doc.Metadata[k]))
	}
	b.WriteString(" </head>\n")

	b.WriteString(" <body>\n")
	for i, page := range doc.Pages {
		writePage(&b, page, i+1)
	}
	b.WriteString(" </body>\n")
	b.WriteString("</html>\n")
	return b.String()
}

func writePage(b *strings.Builder, page Page, pageNo int) {
	ids := &pageIDs{page: pageNo}

	id := page.ID
	if id == "" {
		id = fmt.Sprintf("page_%d", pageNo)
	}

	var parts []string
	if page.Image != "" {
		parts = append(parts, fmt.Sprintf("image \"%s\"", page.Image))
	}
	parts = append(parts, bboxTitle(page.BBox))
	parts = append(parts, fmt.Sprintf("ppageno %d", page.Number))
	title := withMeta(strings.Join(parts, "; "), page.Metadata)

	fmt.Fprintf(b, "  %s\n", openTag("div", ClassPage, id, page.Lang, title))
	for _, area := range page.Areas {
		writeArea(b, area, ids)
	}
	for _, par := range page.Paragraphs {
		writeParagraph(b, par, ids)
	}
	for _, line := range page.Lines {
		writeLine(b, line, ids)
	}
	b.WriteString("  </div>\n")
}

func writeArea(b *strings.Builder, area Area, ids *pageIDs) {
	title := withMeta(bboxTitle(area.BBox), area.Metadata)
	fmt.Fprintf(b, "   %s\n", openTag("div", ClassArea, ids.areaID(area.ID), area.Lang, title))
	for _, par := range area.Paragraphs {
		writeParagraph(b, par, ids)
	}
	for _, line := range area.Lines {
		writeLine(b, line, ids)
	}
	for _, word := range area.Words {
		writeWord(b, word, ids)
	}
	b.WriteString("   </div>\n")
}

func writeParagraph(b *strings.Builder, par Paragraph, ids *pageIDs) {
	title := withMeta(bboxTitle(par.BBox), par.Metadata)
	fmt.Fprintf(b, "    %s\n", openTag("p", ClassParagraph, ids.parID(par.ID), par.Lang, title))
	for _, line := range par.Lines {
		writeLine(b, line, ids)
	}
	for _, word := range par.Words {
		writeWord(b, word, ids)
	}
	b.WriteString("    </p>\n")
}

func writeLine(b *strings.Builder, line Line, ids *pageIDs) {
	title := bboxTitle(line.BBox)
	if line.Baseline != "" {
		title += "; baseline " + line.Baseline
	}
	title = withMeta(title, line.Metadata)

	fmt.Fprintf(b, "     %s\n", openTag("span", ClassLine, ids.lineID(line.ID), line.Lang, title))
	for _, word := range line.Words {
		writeWord(b, word, ids)
	}
	b.WriteString("     </span>\n")
}

func writeWord(b *strings.Builder, word Word, ids *pageIDs) {
	title := fmt.Sprintf("%s; x_wconf %d", bboxTitle(word.BBox), int(math.Round(word.Confidence)))
	title = withMeta(title, word.Metadata)

	fmt.Fprintf(b, "      %s%s</span>\n",
		openTag("span", ClassWord, ids.wordID(word.ID), word.Lang, title),
		html.EscapeString(word.Text))
}

// pageIDs numbers synthesized element IDs within one page.
type pageIDs struct {
	page int
	area int
	par  int
	line int
	word int
}

func (p *pageIDs) areaID(existing string) string {
	p.area++
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("carea_%d_%d", p.page, p.area)
}

func (p *pageIDs) parID(existing string) string {
	p.par++
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("par_%d_%d", p.page, p.par)
}

func (p *pageIDs) lineID(existing string) string {
	p.line++
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("line_%d_%d", p.page, p.line)
}

func (p *pageIDs) wordID(existing string) string {
	p.word++
	if existing != "" {
		return existing
	}
	return fmt.Sprintf("word_%d_%d", p.page, p.word)
}

func openTag(tag, class, id, lang, title string) string {
	var sb strings.Builder
	sb.WriteString("<" + tag + " class=\"" + class + "\"")
	if id != "" {
		sb.WriteString(" id=\"" + html.EscapeString(id) + "\"")
	}
	if lang != "" {
		sb.WriteString(" lang=\"" + html.EscapeString(lang) + "\"")
	}
	if title != "" {
		sb.WriteString(" title=\"" + html.EscapeString(title) + "\"")
	}
	sb.WriteString(">")
	return sb.String()
}

func bboxTitle(b BBox) string {
	return fmt.Sprintf("bbox %d %d %d %d",
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)))
}

// withMeta appends metadata properties to a title string in key order.
func withMeta(title string, meta map[string]string) string {
	for _, k := range sortedKeys(meta) {
		if title != "" {
			title += "; "
		}
		title += k
		if meta[k] != "" {
			title += " " + meta[k]
		}
	}
	return title
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
