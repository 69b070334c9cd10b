package request

type CreateGlossaryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	CollectionIDs []uint `json:"collection_ids"`
}

type CreateGlossaryTermRequest struct {
	Term       string `json:"term" binding:"required"`
	Definition string `json:"definition" binding:"required"`
}
