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

func CreateResource(c *gin.Context) {
	var req request.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	res := &model.Resource{
		Name:        req.Name,
		SourceModel: req.SourceModel,
		SourceID:    req.SourceID,
		ExternalURL: req.ExternalURL,
		Public:      req.Public,
		OwnerEmail:  c.GetString("email"),
	}
	if req.Lang != "" {
		res.Lang = req.Lang
	}

	if err := resources.Create(c.Request.Context(), res, req.CollectionIDs); err != nil {
		slog.Error(ErrCreateResource.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateResource.Error(),
		})
		return
	}

	created, err := dao.GetResourceByID(res.ID)
	if err != nil || created == nil {
		slog.Error(ErrGetResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetResource.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.NewResourceResponse(created),
	})
}

func GetResources(c *gin.Context) {
	email := c.GetString("email")
	list, err := dao.ListResourcesByOwner(email)
	if err != nil {
		slog.Error(ErrGetResources.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetResources.Error(),
		})
		return
	}

	resp := make([]response.ResourceResponse, 0, len(list))
	for i := range list {
		resp = append(resp, response.NewResourceResponse(&list[i]))
	}
	c.JSON(http.StatusOK, response.Response{Data: resp})
}

func GetResource(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	chunkCount, err := dao.CountChunksByResource(res.ID)
	if err != nil {
		slog.Error(ErrGetResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetResource.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.ResourceDetailResponse{
			ResourceResponse: response.NewResourceResponse(res),
			Content:          res.Content,
			ChunkCount:       chunkCount,
		},
	})
}

func DeleteResource(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	if err := resources.Delete(c.Request.Context(), res.ID); err != nil {
		slog.Error(ErrDeleteResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteResource.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func UpdateResourceContent(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	var req request.UpdateResourceContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := resources.UpdateContent(res.ID, req.Content); err != nil {
		slog.Error(ErrUpdateResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateResource.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func SetResourceCollections(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	var req request.SetResourceCollectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := resources.SetCollections(c.Request.Context(), res.ID, req.CollectionIDs); err != nil {
		slog.Error(ErrUpdateResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateResource.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

// ProcessResources 手动推进一批资源的流水线
func ProcessResources(c *gin.Context) {
	var req request.ResourceIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	summary, err := resources.ProcessResources(c.Request.Context(), req.IDs)
	if err != nil {
		slog.Error(ErrProcessResources.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrProcessResources.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: summary})
}

func UnlockResources(c *gin.Context) {
	var req request.ResourceIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := resources.Unlock(req.IDs); err != nil {
		slog.Error(ErrUnlockResources.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUnlockResources.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func ResetResources(c *gin.Context) {
	var req request.ResourceIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	if err := resources.Reset(req.IDs); err != nil {
		slog.Error(ErrResetResources.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrResetResources.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func RecomputeResourceHash(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	if err := resources.RecomputeHash(res.ID); err != nil {
		slog.Error(ErrRecomputeHash.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrRecomputeHash.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func ReindexResource(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	if err := resources.Reindex(c.Request.Context(), res.ID); err != nil {
		slog.Error(ErrReindexResource.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrReindexResource.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func GetResourceLogs(c *gin.Context) {
	res, ok := loadOwnedResource(c)
	if !ok {
		return
	}

	logs, err := dao.GetResourceLogs(res.ID)
	if err != nil {
		slog.Error(ErrGetResourceLogs.Error(), "resource_id", res.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetResourceLogs.Error(),
		})
		return
	}

	var resp response.GetResourceLogsResponse
	for _, log := range logs {
		resp.Logs = append(resp.Logs, response.ResourceLogResponse{
			CreatedAt: log.CreatedAt,
			Level:     log.Level,
			Message:   log.Message,
		})
	}
	c.JSON(http.StatusOK, response.Response{Data: resp})
}

// loadOwnedResource 解析路径参数并校验归属，失败时已写好响应
func loadOwnedResource(c *gin.Context) (*model.Resource, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return nil, false
	}

	res, err := dao.GetResourceByID(uint(id))
	if err != nil {
		slog.Error(ErrGetResource.Error(), "resource_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetResource.Error(),
		})
		return nil, false
	}
	if res == nil || res.OwnerEmail != c.GetString("email") {
		c.AbortWithStatus(http.StatusNotFound)
		return nil, false
	}
	return res, true
}
