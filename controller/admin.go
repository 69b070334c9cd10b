package controller

import (
	"log/slog"
	"net/http"

	"erp-knowledge-backend/response"

	"github.com/gin-gonic/gin"
)

// RunProcessPending 手动触发一轮流水线批处理，与定时任务同路径
func RunProcessPending(c *gin.Context) {
	summary, err := jobs.ProcessPending(c.Request.Context())
	if err != nil {
		slog.Error(ErrRunSchedulerJob.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrRunSchedulerJob.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: summary})
}

// RunIndexAttachments 手动触发一轮附件自动发现
func RunIndexAttachments(c *gin.Context) {
	indexed, err := jobs.IndexAttachments(c.Request.Context())
	if err != nil {
		slog.Error(ErrRunSchedulerJob.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrRunSchedulerJob.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{Data: gin.H{"indexed": indexed}})
}
