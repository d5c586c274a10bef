package services

import "strings"

// SplitPage splits one page's text into character windows of at most size
// runes with overlap runes shared between consecutive windows, so no context
// is lost across a chunk boundary. Chunking never crosses a page boundary:
// every chunk must stay attributable to a single page.
func SplitPage(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
