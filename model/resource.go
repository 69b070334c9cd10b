package model

import "time"

// ResourceState 资源处理状态，线性流转：
// draft -> retrieved -> parsed -> chunked -> ready
type ResourceState string

const (
	StateDraft     ResourceState = "draft"
	StateRetrieved ResourceState = "retrieved"
	StateParsed    ResourceState = "parsed"
	StateChunked   ResourceState = "chunked"
	StateReady     ResourceState = "ready"
)

// ParserKind 资源解析器选择，default表示按mimetype自动分发
type ParserKind string

const (
	ParserDefault ParserKind = "default"
	ParserJSON    ParserKind = "json"
	ParserOCR     ParserKind = "ocr"
)

// ChunkerKind 分块算法选择
type ChunkerKind string

const (
	ChunkerRecursive ChunkerKind = "recursive"
	ChunkerMarkdown  ChunkerKind = "markdown"
)

// Resource 可检索的知识资源，关联唯一外部记录
// (source_model, source_id) 建立唯一索引
type Resource struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Name        string `gorm:"not null" json:"name"`
	SourceModel string `gorm:"not null;uniqueIndex:idx_source_record" json:"source_model"`
	SourceID    uint   `gorm:"not null;uniqueIndex:idx_source_record" json:"source_id"`
	OwnerEmail  string `gorm:"not null;index" json:"owner_email"`

	// Public 为true时所有用户可检索到该资源
	Public bool `gorm:"not null;default:false" json:"public"`

	// Content 资源内容的markdown表示
	Content string `gorm:"type:longtext" json:"content"`

	// ContentHash 内容的SHA256摘要，用于变更检测
	ContentHash string `gorm:"index" json:"content_hash"`

	Lang        string        `gorm:"not null;default:vi" json:"lang"`
	ExternalURL string        `json:"external_url"`
	State       ResourceState `gorm:"not null;default:draft;index" json:"state"`

	// LockDate 处理锁时间戳，超过过期阈值视为失效可被抢占
	LockDate *time.Time `json:"lock_date"`

	Parser       ParserKind  `gorm:"not null;default:default" json:"parser"`
	Chunker      ChunkerKind `gorm:"not null;default:recursive" json:"chunker"`
	ChunkSize    int         `gorm:"not null;default:4000" json:"chunk_size"`
	ChunkOverlap int         `gorm:"not null;default:200" json:"chunk_overlap"`

	Collections []Collection `gorm:"many2many:knowledge_resource_collection" json:"collections,omitempty"`
}

func (Resource) TableName() string {
	return "knowledge_resource"
}

// ResourceLog 资源处理日志，供运维按文档审计流水线状态
type ResourceLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `gorm:"not null;index:idx_resource_created" json:"created_at"`
	ResourceID uint      `gorm:"not null;index:idx_resource_created" json:"resource_id"`

	// Level success/info/warning/error
	Level   string `gorm:"not null" json:"level"`
	Message string `gorm:"type:text;not null" json:"message"`
}

func (ResourceLog) TableName() string {
	return "knowledge_resource_log"
}
