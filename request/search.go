package request

type SearchRequest struct {
	Query         string  `json:"query" binding:"required"`
	CollectionIDs []uint  `json:"collection_ids" binding:"required,min=1"`
	TopK          int     `json:"top_k"`
	MinSimilarity float32 `json:"min_similarity"`

	// WithContext 为true时同时返回拼装好的system提示块
	WithContext bool `json:"with_context"`
}
