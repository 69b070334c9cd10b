package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/request"
	"erp-knowledge-backend/response"

	"github.com/gin-gonic/gin"
)

func CreateCollection(c *gin.Context) {
	var req request.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	collection := &model.Collection{
		Name:               req.Name,
		Active:             true,
		EmbeddingModel:     req.EmbeddingModel,
		OCRCorrectionModel: req.OCRCorrectionModel,
	}
	if req.EmbeddingDim > 0 {
		collection.EmbeddingDim = req.EmbeddingDim
	}
	if req.DefaultChunkSize > 0 {
		collection.DefaultChunkSize = req.DefaultChunkSize
	}
	if req.DefaultChunkOverlap > 0 {
		collection.DefaultChunkOverlap = req.DefaultChunkOverlap
	}
	if req.DefaultChunker != "" {
		collection.DefaultChunker = model.ChunkerKind(req.DefaultChunker)
	}
	if req.DefaultParser != "" {
		collection.DefaultParser = model.ParserKind(req.DefaultParser)
	}

	if err := dao.CreateCollection(collection); err != nil {
		slog.Error(ErrCreateCollection.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateCollection.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, response.Response{Data: collection})
}

func GetCollections(c *gin.Context) {
	collections, err := dao.ListCollections()
	if err != nil {
		slog.Error(ErrGetCollections.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetCollections.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: collections})
}

func UpdateCollection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req request.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.DefaultChunkSize != nil {
		updates["default_chunk_size"] = *req.DefaultChunkSize
	}
	if req.DefaultChunkOverlap != nil {
		updates["default_chunk_overlap"] = *req.DefaultChunkOverlap
	}
	if req.DefaultChunker != nil {
		updates["default_chunker"] = *req.DefaultChunker
	}
	if req.DefaultParser != nil {
		updates["default_parser"] = *req.DefaultParser
	}
	if req.OCRCorrectionModel != nil {
		updates["ocr_correction_model"] = *req.OCRCorrectionModel
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, response.Response{})
		return
	}

	if err := dao.UpdateCollection(id, updates); err != nil {
		slog.Error(ErrUpdateCollection.Error(), "collection_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateCollection.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func DeleteCollection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := dao.DeleteCollection(id); err != nil {
		slog.Error(ErrDeleteCollection.Error(), "collection_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteCollection.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

// ReindexCollection 重建整个集合的向量索引
func ReindexCollection(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := resources.ReindexCollection(c.Request.Context(), id); err != nil {
		slog.Error(ErrReindexCollection.Error(), "collection_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrReindexCollection.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return 0, false
	}
	return uint(id), true
}
