package hocr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// Parse converts raw hOCR data into the structured object model.
func Parse(data []byte) (*Document, error) {
	decoded, err := decodeCharset(data)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR markup: %w", err)
	}

	doc := &Document{Metadata: make(map[string]string)}
	readHead(doc, root)

	for _, n := range childrenByClass(root, ClassPage)[ClassPage] {
		doc.Pages = append(doc.Pages, parsePage(n))
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("no %s elements found in hOCR data", ClassPage)
	}
	return doc, nil
}

// TitleProps breaks an hOCR title attribute into its properties.
// Example input: "bbox 100 200 300 400; x_wconf 95"
func TitleProps(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

// BBoxFromTitle extracts the bbox property from a title attribute.
// Returns nil when the title carries no usable bbox.
func BBoxFromTitle(title string) *BBox {
	vals, ok := TitleProps(title)["bbox"]
	if !ok || len(vals) < 4 {
		return nil
	}
	x1, _ := strconv.ParseFloat(vals[0], 64)
	y1, _ := strconv.ParseFloat(vals[1], 64)
	x2, _ := strconv.ParseFloat(vals[2], 64)
	y2, _ := strconv.ParseFloat(vals[3], 64)
	return &BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// decodeCharset sniffs the declared charset and converts legacy encodings
// to UTF-8. Anything that is not UTF-8 is treated as Latin-1, which covers
// the hOCR output of the common engines.
func decodeCharset(data []byte) ([]byte, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	idx := bytes.Index(bytes.ToLower(head), []byte("charset="))
	if idx < 0 {
		return data, nil
	}

	rest := head[idx+len("charset="):]
	end := bytes.IndexFunc(rest, func(r rune) bool {
		return r == '"' || r == '\'' || r == ';' || r == '>' || r == ' '
	})
	if end < 0 {
		end = len(rest)
	}
	enc := strings.ToLower(strings.TrimSpace(string(rest[:end])))

	switch enc {
	case "", "utf-8", "utf8":
		return data, nil
	default:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s content: %w", enc, err)
		}
		return decoded, nil
	}
}

// readHead extracts document metadata from the html element and head section.
func readHead(doc *Document, root *html.Node) {
	if htmlNode := findElement(root, "html"); htmlNode != nil {
		if v := attr(htmlNode, "lang"); v != "" {
			doc.Language = v
		} else if v := attr(htmlNode, "xml:lang"); v != "" {
			doc.Language = v
		}
	}

	headNode := findElement(root, "head")
	if headNode == nil {
		return
	}
	for c := headNode.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			if c.FirstChild != nil {
				doc.Title = strings.TrimSpace(c.FirstChild.Data)
			}
		case "meta":
			name := attr(c, "name")
			content := attr(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch {
			case name == "ocr-system":
				doc.System = content
			case name == "dc.language":
				doc.Language = content
			case strings.HasPrefix(name, "ocr-"):
				doc.Metadata[name] = content
			}
		}
	}
}

func parsePage(n *html.Node) Page {
	e := readElement(n, "image", "ppageno")
	page := Page{
		ID:       e.id,
		Title:    e.title,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.meta,
	}
	if v, ok := e.prop("image"); ok {
		page.Image = strings.Trim(v, `"`)
	}
	if v, ok := e.prop("ppageno"); ok {
		page.Number, _ = strconv.Atoi(v)
	}

	kids := childrenByClass(n, ClassArea, ClassParagraph, ClassLine)
	for _, c := range kids[ClassArea] {
		page.Areas = append(page.Areas, parseArea(c))
	}
	for _, c := range kids[ClassParagraph] {
		page.Paragraphs = append(page.Paragraphs, parseParagraph(c))
	}
	for _, c := range kids[ClassLine] {
		page.Lines = append(page.Lines, parseLine(c))
	}
	return page
}

func parseArea(n *html.Node) Area {
	e := readElement(n)
	area := Area{
		ID:       e.id,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.meta,
	}

	kids := childrenByClass(n, ClassParagraph, ClassLine, ClassWord)
	for _, c := range kids[ClassParagraph] {
		area.Paragraphs = append(area.Paragraphs, parseParagraph(c))
	}
	for _, c := range kids[ClassLine] {
		area.Lines = append(area.Lines, parseLine(c))
	}
	for _, c := range kids[ClassWord] {
		area.Words = append(area.Words, parseWord(c))
	}
	return area
}

func parseParagraph(n *html.Node) Paragraph {
	e := readElement(n)
	par := Paragraph{
		ID:       e.id,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.meta,
	}

	kids := childrenByClass(n, ClassLine, ClassWord)
	for _, c := range kids[ClassLine] {
		par.Lines = append(par.Lines, parseLine(c))
	}
	for _, c := range kids[ClassWord] {
		par.Words = append(par.Words, parseWord(c))
	}
	return par
}

func parseLine(n *html.Node) Line {
	e := readElement(n, "baseline")
	line := Line{
		ID:       e.id,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.meta,
	}
	if v, ok := e.props["baseline"]; ok {
		line.Baseline = strings.Join(v, " ")
	}

	for _, c := range childrenByClass(n, ClassWord)[ClassWord] {
		line.Words = append(line.Words, parseWord(c))
	}
	return line
}

func parseWord(n *html.Node) Word {
	e := readElement(n, "x_wconf", "lang")
	word := Word{
		ID:       e.id,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.meta,
		Text:     strings.TrimSpace(textContent(n)),
	}
	if v, ok := e.prop("x_wconf"); ok {
		word.Confidence, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := e.prop("lang"); ok {
		word.Lang = v
	}
	return word
}

// element holds the attributes shared by every hOCR element kind.
type element struct {
	id    string
	lang  string
	title string
	bbox  BBox
	props map[string][]string
	meta  map[string]string
}

// readElement extracts the common attributes of an hOCR element. Title
// properties other than bbox and the consumed keys land in meta.
func readElement(n *html.Node, consumed ...string) element {
	e := element{
		id:    attr(n, "id"),
		lang:  attr(n, "lang"),
		title: attr(n, "title"),
		meta:  make(map[string]string),
	}
	if e.title == "" {
		return e
	}
	e.props = TitleProps(e.title)
	if bb := BBoxFromTitle(e.title); bb != nil {
		e.bbox = *bb
	}
	for k, v := range e.props {
		if k == "bbox" || isConsumed(k, consumed) {
			continue
		}
		e.meta[k] = strings.Join(v, " ")
	}
	return e
}

func (e element) prop(key string) (string, bool) {
	if v, ok := e.props[key]; ok && len(v) > 0 {
		return v[0], true
	}
	return "", false
}

func isConsumed(key string, consumed []string) bool {
	for _, c := range consumed {
		if c == key {
			return true
		}
	}
	return false
}

// childrenByClass collects the topmost descendants of n matching any of the
// given classes. The walk does not descend into a match, so nested elements
// stay with their structural parent.
func childrenByClass(n *html.Node, classes ...string) map[string][]*html.Node {
	out := make(map[string][]*html.Node)
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			for _, want := range classes {
				if hasClass(node, want) {
					out[want] = append(out[want], node)
					return
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func hasClass(n *html.Node, want string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == want {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent gathers all text under a node.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
