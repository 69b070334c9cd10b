package request

type CreateResourceRequest struct {
	Name        string `json:"name"`
	SourceModel string `json:"source_model" binding:"required"`
	SourceID    uint   `json:"source_id" binding:"required"`
	ExternalURL string `json:"external_url"`
	Public      bool   `json:"public"`
	Lang        string `json:"lang"`

	CollectionIDs []uint `json:"collection_ids"`
}

type UpdateResourceContentRequest struct {
	Content string `json:"content" binding:"required"`
}

type SetResourceCollectionsRequest struct {
	CollectionIDs []uint `json:"collection_ids"`
}

// ResourceIDsRequest 批量操作（process/unlock/reset）的目标资源
type ResourceIDsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}
