package batch

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPageText reads the embedded text layer of one page, if any. The
// parser panics on some malformed content streams, so the probe recovers
// and reports those pages as unreadable rather than taking down the batch.
func extractPageText(data []byte, pageIndex int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction panicked on page %d: %v", pageIndex+1, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	if pageIndex < 0 || pageIndex >= reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", pageIndex+1)
	}

	page := reader.Page(pageIndex + 1) // 1-based
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
