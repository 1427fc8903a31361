package docstore

// Record is a single corpus entry: one source file and its page texts.
type Record struct {
	FileName string `json:"file_name"`
	Content  []Page `json:"content"`
}

// Page holds the raw text of one page of a source document.
type Page struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// Chunk is a unit of retrievable text extracted from a source document page.
// Chunks are immutable once created and owned by the Store.
type Chunk struct {
	Text   string
	Source string
	Page   int
}

// Hit pairs a chunk with its similarity score for a query. Scores are
// similarities: higher is better, never negative. Backends reporting
// distances invert them before returning hits.
type Hit struct {
	Chunk Chunk
	Score float64
}
