package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// textFromLayout slices the document text by the layout's anchor segments.
// Anchor indices are rune offsets into the full text; out-of-range segments
// are clamped rather than rejected.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	total := len(runes)

	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > total {
			end = total
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}

// cleanTokenText extracts a token's text with newlines collapsed. A token
// whose detected break is set carries the break whitespace in its anchor
// range; that trailing whitespace is stripped.
func cleanTokenText(token *documentaipb.Document_Page_Token, fullText string) string {
	text := textFromLayout(token.GetLayout(), fullText)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	if token.GetDetectedBreak() != nil &&
		token.GetDetectedBreak().GetType() != documentaipb.Document_Page_Token_DetectedBreak_TYPE_UNSPECIFIED {
		text = strings.TrimRight(text, " \t")
	}
	return strings.TrimSpace(text)
}
