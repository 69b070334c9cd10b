package controller

import (
	"log/slog"
	"net/http"

	"erp-knowledge-backend/request"
	"erp-knowledge-backend/response"
	"erp-knowledge-backend/service/retrieval"

	"github.com/gin-gonic/gin"
)

// Search 语义检索，结果已按当前用户做过权限过滤
func Search(c *gin.Context) {
	var req request.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	minSimilarity := req.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = retrieval.DefaultMinSimilarity
	}

	email := c.GetString("email")
	results, err := engine.Search(c.Request.Context(),
		req.Query, req.CollectionIDs, req.TopK, minSimilarity, email)
	if err != nil {
		slog.Error(ErrSearch.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSearch.Error(),
		})
		return
	}

	resp := response.SearchResponse{Results: results}
	if req.WithContext {
		context, err := engine.BuildContext(results, req.CollectionIDs)
		if err != nil {
			slog.Error(ErrSearch.Error(), "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Msg: ErrSearch.Error(),
			})
			return
		}
		resp.Context = context
	}

	c.JSON(http.StatusOK, response.Response{Data: resp})
}
