package domain

// MaxRetrievedTextLen caps the text carried by a retrieval hit, in characters.
const MaxRetrievedTextLen = 800

// RetrievedChunk is one ranked hit in a RetrievalResult.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Idx        int     `json:"idx"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// RetrievalResult is a transient, ranked list of chunks, ascending by distance.
type RetrievalResult struct {
	Query   string           `json:"query"`
	Results []RetrievedChunk `json:"results"`
}

// TruncateText cuts s to at most max characters. It is a plain prefix cut.
func TruncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
