package model

import "time"

// Attachment 文件附件元数据，二进制内容存储在OSS
// 在 file_name 上建立全文索引
type Attachment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_email_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	OwnerEmail string `gorm:"not null;index:idx_email_created" json:"owner_email"`
	FileName   string `gorm:"not null;index:idx_fulltext_file_name,class:FULLTEXT,option:WITH PARSER ngram" json:"file_name"`
	Mimetype   string `gorm:"not null" json:"mimetype"`
	FileSize   int64  `gorm:"not null" json:"file_size"`

	// 文件在OSS上的完整路径，不包含bucket名称
	ObjectName string `gorm:"not null" json:"object_name"`

	// URL类型附件无二进制内容，仅记录外部链接
	URL string `json:"url"`
}

func (Attachment) TableName() string {
	return "knowledge_attachment"
}

// SourceModelAttachment 附件作为资源来源时的source_model标识
const SourceModelAttachment = "attachment"

// IndexableMimetypes 附件自动发现时允许建立资源的mimetype
var IndexableMimetypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/markdown",
	"text/html",
	"text/csv",
}
