package request

// RegisterAttachmentRequest 在文件成功传输到OSS后调用，登记元数据
type RegisterAttachmentRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	Mimetype   string `json:"mimetype" binding:"required"`
	ObjectName string `json:"object_name" binding:"required"`
	FileSize   int64  `json:"file_size"`
}
