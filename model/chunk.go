package model

import "fmt"

// Chunk represents one unit of ingested document content.
// Chunks are produced by the external ingestion pipeline; this core only
// reads them and lazily fills Embedding when indexing.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"` // 0-based, sequential within a document
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`
}

// VectorID returns the stable vector index id for the chunk
func (c *Chunk) VectorID() string {
	return fmt.Sprintf("%v_chunk_%v", c.DocumentID, c.ChunkIndex)
}

// NodeID returns the stable graph node id for the chunk
func (c *Chunk) NodeID() string {
	return fmt.Sprintf("chunk_%v_%v", c.DocumentID, c.ChunkIndex)
}
