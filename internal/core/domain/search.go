package domain

// SearchQuery is the input of the semantic search sub-process spawned for
// search-intent chat messages.
type SearchQuery struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// RetrievedChunk is one scored hit from the vector store.
type RetrievedChunk struct {
	DocumentURI string  `json:"document_uri"`
	ChunkIndex  int     `json:"chunk_index"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
}

// SearchResult is the structured outcome of one search sub-process.
type SearchResult struct {
	Success  bool             `json:"success"`
	Response string           `json:"response,omitempty"`
	Chunks   []RetrievedChunk `json:"chunks,omitempty"`
	Error    string           `json:"error,omitempty"`
}
