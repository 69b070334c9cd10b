package controller

import (
	"log/slog"
	"net/http"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/request"
	"erp-knowledge-backend/response"

	"github.com/gin-gonic/gin"
)

func CreateGlossary(c *gin.Context) {
	var req request.CreateGlossaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	collections, err := dao.GetCollectionsByIDs(req.CollectionIDs)
	if err != nil {
		slog.Error(ErrCreateGlossary.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateGlossary.Error(),
		})
		return
	}

	glossary := &model.Glossary{
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
		Collections: collections,
	}
	if err := dao.CreateGlossary(glossary); err != nil {
		slog.Error(ErrCreateGlossary.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateGlossary.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, response.Response{Data: glossary})
}

func GetGlossaries(c *gin.Context) {
	glossaries, err := dao.ListGlossaries()
	if err != nil {
		slog.Error(ErrGetGlossaries.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetGlossaries.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: glossaries})
}

func DeleteGlossary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := dao.DeleteGlossary(id); err != nil {
		slog.Error(ErrDeleteGlossary.Error(), "glossary_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteGlossary.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

func CreateGlossaryTerm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req request.CreateGlossaryTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	term := &model.GlossaryTerm{
		GlossaryID: id,
		Term:       req.Term,
		Definition: req.Definition,
		Active:     true,
	}
	if err := dao.CreateGlossaryTerm(term); err != nil {
		slog.Error(ErrCreateGlossaryTerm.Error(), "glossary_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateGlossaryTerm.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, response.Response{Data: term})
}

func DeleteGlossaryTerm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := dao.DeleteGlossaryTerm(id); err != nil {
		slog.Error(ErrDeleteGlossaryTerm.Error(), "term_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteGlossaryTerm.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}
