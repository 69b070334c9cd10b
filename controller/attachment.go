package controller

import (
	"log/slog"
	"net/http"

	"erp-knowledge-backend/config"
	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/request"
	"erp-knowledge-backend/response"
	"erp-knowledge-backend/service/mq"

	"github.com/gin-gonic/gin"
)

// RegisterAttachment 在前端将文件成功传输到OSS后调用，
// 登记附件元数据，向MQ发送自动索引事件
func RegisterAttachment(c *gin.Context) {
	var req request.RegisterAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	att := &model.Attachment{
		OwnerEmail: c.GetString("email"),
		FileName:   req.FileName,
		Mimetype:   req.Mimetype,
		FileSize:   req.FileSize,
		ObjectName: req.ObjectName,
	}
	if err := dao.CreateAttachment(att); err != nil {
		slog.Error(ErrRegisterAttachment.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrRegisterAttachment.Error(),
		})
		return
	}

	if config.Cfg.MQ.Enabled {
		if err := mq.PublishAttachmentUploaded(c.Request.Context(), att.ID); err != nil {
			// 事件丢失由定时发现任务兜底
			slog.Warn("Failed to publish attachment uploaded event",
				"attachment_id", att.ID,
				"err", err)
		}
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.AttachmentResponse{
			ID:       att.ID,
			FileName: att.FileName,
			Mimetype: att.Mimetype,
			FileSize: att.FileSize,
		},
	})
}

func GetAttachments(c *gin.Context) {
	email := c.GetString("email")
	list, err := dao.ListAttachmentsByOwner(email)
	if err != nil {
		slog.Error(ErrGetAttachments.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetAttachments.Error(),
		})
		return
	}

	var resp response.GetAttachmentsResponse
	for _, att := range list {
		resp.Attachments = append(resp.Attachments, response.AttachmentResponse{
			ID:       att.ID,
			FileName: att.FileName,
			Mimetype: att.Mimetype,
			FileSize: att.FileSize,
			URL:      att.URL,
		})
	}
	c.JSON(http.StatusOK, response.Response{Data: resp})
}

func DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	att, err := dao.GetAttachmentByID(id)
	if err != nil {
		slog.Error(ErrDeleteAttachment.Error(), "attachment_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteAttachment.Error(),
		})
		return
	}
	if att == nil || att.OwnerEmail != c.GetString("email") {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if err := dao.DeleteAttachment(id); err != nil {
		slog.Error(ErrDeleteAttachment.Error(), "attachment_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrDeleteAttachment.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, response.Response{})
}

// DownloadAttachment 重定向到OSS的限时下载链接
func DownloadAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	att, err := dao.GetAttachmentByID(id)
	if err != nil {
		slog.Error(ErrGetPreSignedURL.Error(), "attachment_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPreSignedURL.Error(),
		})
		return
	}
	if att == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	url, err := attachments.PresignURL(c.Request.Context(), att.ObjectName)
	if err != nil {
		slog.Error(ErrGetPreSignedURL.Error(), "attachment_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPreSignedURL.Error(),
		})
		return
	}
	c.Redirect(http.StatusFound, url)
}
