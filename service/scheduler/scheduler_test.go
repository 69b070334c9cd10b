package scheduler

import (
	"context"
	"testing"
	"time"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/parser"
	"erp-knowledge-backend/service/resource"
	"erp-knowledge-backend/service/source"
	"erp-knowledge-backend/service/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Collection{},
		&model.Resource{},
		&model.ResourceLog{},
		&model.Chunk{},
	))
	dao.DB = db
}

func newTestScheduler() *Scheduler {
	resources := resource.NewService(
		source.NewRegistry(nil),
		parser.NewRegistry(),
		embedding.NewLocalFactory(32),
		vectorstore.NewMemoryStore(),
		10*time.Second,
		10*time.Minute,
	)
	return New(resources, Options{
		ProcessSpec:       "@every 1h",
		DiscoverSpec:      "@every 1h",
		ProcessBatchSize:  10,
		DiscoverBatchSize: 10,
		StaleLock:         10 * time.Minute,
	})
}

func TestProcessPendingAdvancesResources(t *testing.T) {
	setupTestDB(t)
	sched := newTestScheduler()

	collection := &model.Collection{
		Name: "kb", Active: true, EmbeddingModel: "local", EmbeddingDim: 32,
	}
	require.NoError(t, dao.CreateCollection(collection))

	content := "Invoices are due within thirty days of issue."
	res := &model.Resource{
		Name:         "Invoicing",
		SourceModel:  "external",
		SourceID:     1,
		OwnerEmail:   "alice@example.com",
		Content:      content,
		ContentHash:  resource.ContentHash(content),
		State:        model.StateParsed,
		Chunker:      model.ChunkerRecursive,
		ChunkSize:    500,
		ChunkOverlap: 50,
		Collections:  []model.Collection{*collection},
	}
	require.NoError(t, dao.CreateResource(res))

	summary, err := sched.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Chunked)
	assert.Equal(t, 1, summary.Embedded)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReady, got.State)
}

func TestProcessPendingNoWork(t *testing.T) {
	setupTestDB(t)
	sched := newTestScheduler()

	summary, err := sched.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Chunked)
	assert.Zero(t, summary.Errors)
}

// knowledge_attachment的FULLTEXT索引标签仅MySQL支持，
// sqlite下用无标签的影子结构建同名表
type attachmentTable struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OwnerEmail string
	FileName   string
	Mimetype   string
	FileSize   int64
	ObjectName string
	URL        string
}

func (attachmentTable) TableName() string {
	return "knowledge_attachment"
}

func setupAttachmentTable(t *testing.T) {
	require.NoError(t, dao.DB.AutoMigrate(&attachmentTable{}))
}

func createTestAttachment(t *testing.T, name, mimetype string) *model.Attachment {
	att := &model.Attachment{
		OwnerEmail: "alice@example.com",
		FileName:   name,
		Mimetype:   mimetype,
		ObjectName: "uploads/" + name,
	}
	require.NoError(t, dao.CreateAttachment(att))
	return att
}

func TestIndexAttachmentsCreatesResources(t *testing.T) {
	setupTestDB(t)
	setupAttachmentTable(t)
	sched := newTestScheduler()

	collection := &model.Collection{
		Name: "kb", Active: true, EmbeddingModel: "local", EmbeddingDim: 32,
	}
	require.NoError(t, dao.CreateCollection(collection))
	sched.opts.DefaultCollectionID = collection.ID

	plain := createTestAttachment(t, "notes.txt", "text/plain")
	archive := createTestAttachment(t, "bundle.zip", "application/zip")
	already := createTestAttachment(t, "old.txt", "text/plain")
	require.NoError(t, dao.CreateResource(&model.Resource{
		Name:        already.FileName,
		SourceModel: model.SourceModelAttachment,
		SourceID:    already.ID,
		OwnerEmail:  already.OwnerEmail,
	}))

	count, err := sched.IndexAttachments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := dao.GetResourceBySource(model.SourceModelAttachment, plain.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "notes.txt", res.Name)
	assert.Equal(t, "alice@example.com", res.OwnerEmail)
	require.Len(t, res.Collections, 1)
	assert.Equal(t, collection.ID, res.Collections[0].ID)

	// 不可索引的mimetype不建档
	skipped, err := dao.GetResourceBySource(model.SourceModelAttachment, archive.ID)
	require.NoError(t, err)
	assert.Nil(t, skipped)

	// 第二轮没有新附件可发现
	count, err = sched.IndexAttachments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndexAttachmentsFallsBackToFirstCollection(t *testing.T) {
	setupTestDB(t)
	setupAttachmentTable(t)
	sched := newTestScheduler()
	sched.opts.DefaultCollectionID = 999

	inactive := &model.Collection{
		Name: "off", Active: false, EmbeddingModel: "local", EmbeddingDim: 32,
	}
	require.NoError(t, dao.CreateCollection(inactive))
	active := &model.Collection{
		Name: "kb", Active: true, EmbeddingModel: "local", EmbeddingDim: 32,
	}
	require.NoError(t, dao.CreateCollection(active))

	att := createTestAttachment(t, "guide.md", "text/markdown")

	count, err := sched.IndexAttachments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	res, err := dao.GetResourceBySource(model.SourceModelAttachment, att.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Collections, 1)
	assert.Equal(t, active.ID, res.Collections[0].ID)
}

func TestIndexAttachmentsWithoutCollectionDoesNothing(t *testing.T) {
	setupTestDB(t)
	setupAttachmentTable(t)
	sched := newTestScheduler()

	createTestAttachment(t, "notes.txt", "text/plain")

	count, err := sched.IndexAttachments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndexAttachmentReprocessesExistingResource(t *testing.T) {
	setupTestDB(t)
	setupAttachmentTable(t)
	sched := newTestScheduler()

	collection := &model.Collection{
		Name: "kb", Active: true, EmbeddingModel: "local", EmbeddingDim: 32,
	}
	require.NoError(t, dao.CreateCollection(collection))

	att := createTestAttachment(t, "policy.txt", "text/plain")
	content := "Refunds are processed within five business days."
	res := &model.Resource{
		Name:         att.FileName,
		SourceModel:  model.SourceModelAttachment,
		SourceID:     att.ID,
		OwnerEmail:   att.OwnerEmail,
		Content:      content,
		ContentHash:  resource.ContentHash(content),
		State:        model.StateParsed,
		Chunker:      model.ChunkerRecursive,
		ChunkSize:    500,
		ChunkOverlap: 50,
		Collections:  []model.Collection{*collection},
	}
	require.NoError(t, dao.CreateResource(res))

	require.NoError(t, sched.IndexAttachment(context.Background(), att.ID))

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReady, got.State)
}

func TestIndexAttachmentUnknownID(t *testing.T) {
	setupTestDB(t)
	setupAttachmentTable(t)
	sched := newTestScheduler()

	assert.Error(t, sched.IndexAttachment(context.Background(), 404))
}

func TestStartAndStop(t *testing.T) {
	setupTestDB(t)
	sched := newTestScheduler()

	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestStartRejectsBadSpec(t *testing.T) {
	setupTestDB(t)
	sched := newTestScheduler()
	sched.opts.ProcessSpec = "not a cron spec"

	assert.Error(t, sched.Start())
}
