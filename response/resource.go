package response

import (
	"time"

	"erp-knowledge-backend/model"
)

type ResourceResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	SourceModel string `json:"source_model"`
	SourceID    uint   `json:"source_id"`
	State       string `json:"state"`
	Public      bool   `json:"public"`
	Lang        string `json:"lang"`
	ContentHash string `json:"content_hash"`
	Locked      bool   `json:"locked"`

	CollectionIDs []uint `json:"collection_ids"`
}

func NewResourceResponse(res *model.Resource) ResourceResponse {
	collectionIDs := make([]uint, 0, len(res.Collections))
	for _, collection := range res.Collections {
		collectionIDs = append(collectionIDs, collection.ID)
	}
	return ResourceResponse{
		ID:            res.ID,
		Name:          res.Name,
		SourceModel:   res.SourceModel,
		SourceID:      res.SourceID,
		State:         string(res.State),
		Public:        res.Public,
		Lang:          res.Lang,
		ContentHash:   res.ContentHash,
		Locked:        res.LockDate != nil,
		CollectionIDs: collectionIDs,
	}
}

type ResourceDetailResponse struct {
	ResourceResponse
	Content    string `json:"content"`
	ChunkCount int64  `json:"chunk_count"`
}

type ResourceLogResponse struct {
	CreatedAt time.Time `json:"created_at"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

type GetResourceLogsResponse struct {
	Logs []ResourceLogResponse `json:"logs"`
}
