package domain

import "strconv"

// Chunk is a contiguous span of a document's extracted text. Start and End are
// rune offsets into that text, End exclusive.
type Chunk struct {
	DocumentID string
	Seq        int
	Text       string
	Start      int
	End        int
}

// VectorID returns the deterministic record ID used for this chunk in the
// vector index. Re-ingesting the same document overwrites rather than
// duplicates.
func (c Chunk) VectorID() string {
	return ChunkVectorID(c.DocumentID, c.Seq)
}

// ChunkVectorID builds the record ID for chunk seq of documentID.
func ChunkVectorID(documentID string, seq int) string {
	return documentID + "#" + strconv.Itoa(seq)
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk
	Score float32
}
