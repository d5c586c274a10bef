package models

// Document is a manual fetched from remote storage for ingestion. The raw
// bytes are discarded once the document has been chunked.
type Document struct {
	Name   string `json:"name"`
	FileID string `json:"file_id"`
	Path   string `json:"path,omitempty"`
}

// Chunk is a bounded span of text from one page of one manual, the unit of
// retrieval. Page is 1-indexed and matches the document's visual pagination;
// the same number is later passed to the page rasterizer, so no index shift
// may be introduced anywhere between extraction and rasterization.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// SearchResult is a chunk matched against a query with its similarity score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
