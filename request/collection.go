package request

type CreateCollectionRequest struct {
	Name           string `json:"name" binding:"required"`
	EmbeddingModel string `json:"embedding_model" binding:"required"`
	EmbeddingDim   int    `json:"embedding_dim"`

	DefaultChunkSize    int    `json:"default_chunk_size"`
	DefaultChunkOverlap int    `json:"default_chunk_overlap"`
	DefaultChunker      string `json:"default_chunker"`
	DefaultParser       string `json:"default_parser"`

	OCRCorrectionModel string `json:"ocr_correction_model"`
}

type UpdateCollectionRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`

	DefaultChunkSize    *int    `json:"default_chunk_size"`
	DefaultChunkOverlap *int    `json:"default_chunk_overlap"`
	DefaultChunker      *string `json:"default_chunker"`
	DefaultParser       *string `json:"default_parser"`

	OCRCorrectionModel *string `json:"ocr_correction_model"`
}
