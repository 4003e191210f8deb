package hocr

import (
	"strings"
)

// PlainText extracts all text from the document in element order, one text
// line per output line, pages separated by a blank line.
func (d *Document) PlainText() string {
	var pages []string
	for _, page := range d.Pages {
		if t := page.PlainText(); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n")
}

// PlainText extracts the page's text, one text line per output line.
func (p Page) PlainText() string {
	var sb strings.Builder
	for _, area := range p.Areas {
		writeAreaText(&sb, area)
	}
	for _, par := range p.Paragraphs {
		writeParagraphText(&sb, par)
	}
	for _, line := range p.Lines {
		writeLineText(&sb, line)
	}
	return sb.String()
}

// Words returns every word of the page in element order.
func (p Page) Words() []Word {
	var out []Word
	for _, area := range p.Areas {
		for _, par := range area.Paragraphs {
			out = appendParagraphWords(out, par)
		}
		for _, line := range area.Lines {
			out = append(out, line.Words...)
		}
		out = append(out, area.Words...)
	}
	for _, par := range p.Paragraphs {
		out = appendParagraphWords(out, par)
	}
	for _, line := range p.Lines {
		out = append(out, line.Words...)
	}
	return out
}

func appendParagraphWords(out []Word, par Paragraph) []Word {
	for _, line := range par.Lines {
		out = append(out, line.Words...)
	}
	return append(out, par.Words...)
}

func writeAreaText(sb *strings.Builder, area Area) {
	for _, par := range area.Paragraphs {
		writeParagraphText(sb, par)
	}
	for _, line := range area.Lines {
		writeLineText(sb, line)
	}
	writeWordsText(sb, area.Words)
}

func writeParagraphText(sb *strings.Builder, par Paragraph) {
	for _, line := range par.Lines {
		writeLineText(sb, line)
	}
	writeWordsText(sb, par.Words)
}

func writeLineText(sb *strings.Builder, line Line) {
	writeWordsText(sb, line.Words)
}

func writeWordsText(sb *strings.Builder, words []Word) {
	if len(words) == 0 {
		return
	}
	for i, w := range words {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(w.Text)
	}
	sb.WriteString("\n")
}
