package resource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/access"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/parser"
	"erp-knowledge-backend/service/retrieval"
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
		&model.Glossary{},
		&model.GlossaryTerm{},
	))
	dao.DB = db
}

func newTestService(store vectorstore.Store) *Service {
	return NewService(
		source.NewRegistry(nil),
		parser.NewRegistry(),
		embedding.NewLocalFactory(64),
		store,
		30*time.Second,
		10*time.Minute,
	)
}

func createTestCollection(t *testing.T) *model.Collection {
	t.Helper()
	collection := &model.Collection{
		Name:                "kb",
		Active:              true,
		EmbeddingModel:      "local",
		EmbeddingDim:        64,
		DefaultChunkSize:    500,
		DefaultChunkOverlap: 50,
		DefaultChunker:      model.ChunkerRecursive,
		DefaultParser:       model.ParserDefault,
	}
	require.NoError(t, dao.CreateCollection(collection))
	return collection
}

func serveText(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestPipelineEndToEnd(t *testing.T) {
	setupTestDB(t)
	store := vectorstore.NewMemoryStore()
	svc := newTestService(store)
	collection := createTestCollection(t)
	ts := serveText(t, "Refund policy: 30 days money back.")

	ctx := context.Background()
	res := &model.Resource{
		Name:        "Refund Policy",
		SourceModel: "external",
		SourceID:    1,
		OwnerEmail:  "alice@example.com",
		ExternalURL: ts.URL,
	}
	require.NoError(t, svc.Create(ctx, res, []uint{collection.ID}))

	// 建档时自动跑完整条流水线
	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StateReady, got.State)
	assert.NotEmpty(t, got.ContentHash)
	assert.Contains(t, got.Content, "Refund policy")
	assert.Equal(t, 500, got.ChunkSize)

	chunks, err := dao.GetChunksByResource(res.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Embedded)

	// 流水线产物可以被语义检索召回
	engine := retrieval.NewEngine(embedding.NewLocalFactory(64), store, access.OwnerOrPublic{})
	results, err := engine.Search(ctx, "refund policy", []uint{collection.ID}, 5, 0.3, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, res.ID, results[0].ResourceID)
	assert.Greater(t, results[0].Score, float32(0.3))

	// 其他用户搜不到私有资源
	results, err = engine.Search(ctx, "refund policy", []uint{collection.ID}, 5, 0.3, "mallory@example.com")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipelineSecondRunIsIdempotent(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(vectorstore.NewMemoryStore())
	collection := createTestCollection(t)
	ts := serveText(t, "Shipping takes two business days.")

	ctx := context.Background()
	res := &model.Resource{
		Name:        "Shipping",
		SourceModel: "external",
		SourceID:    2,
		OwnerEmail:  "alice@example.com",
		ExternalURL: ts.URL,
	}
	require.NoError(t, svc.Create(ctx, res, []uint{collection.ID}))

	summary, err := svc.ProcessResources(ctx, []uint{res.ID})
	require.NoError(t, err)
	assert.Zero(t, summary.Retrieved)
	assert.Zero(t, summary.Parsed)
	assert.Zero(t, summary.Chunked)
	assert.Zero(t, summary.Embedded)
	assert.Zero(t, summary.Errors)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReady, got.State)
	assert.Nil(t, got.LockDate)
}

func TestPipelineSkipsLockedResources(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(vectorstore.NewMemoryStore())
	collection := createTestCollection(t)

	res := &model.Resource{
		Name:        "Locked",
		SourceModel: "external",
		SourceID:    3,
		OwnerEmail:  "alice@example.com",
		ExternalURL: "http://unused.invalid",
		State:       model.StateDraft,
		Collections: []model.Collection{*collection},
	}
	require.NoError(t, dao.CreateResource(res))
	require.NoError(t, dao.DB.Model(res).Update("lock_date", time.Now()).Error)

	summary, err := svc.ProcessResources(context.Background(), []uint{res.ID})
	require.NoError(t, err)
	assert.Zero(t, summary.Retrieved)
	assert.Zero(t, summary.Errors)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateDraft, got.State)
}

func TestPipelineHealsMissingChunks(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(vectorstore.NewMemoryStore())
	collection := createTestCollection(t)

	content := "Warranty covers parts and labor for one year."
	res := &model.Resource{
		Name:         "Warranty",
		SourceModel:  "external",
		SourceID:     4,
		OwnerEmail:   "alice@example.com",
		Content:      content,
		ContentHash:  ContentHash(content),
		State:        model.StateReady,
		Chunker:      model.ChunkerRecursive,
		ChunkSize:    500,
		ChunkOverlap: 50,
		Collections:  []model.Collection{*collection},
	}
	require.NoError(t, dao.CreateResource(res))

	summary, err := svc.ProcessResources(context.Background(), []uint{res.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Chunked)
	assert.Equal(t, 1, summary.Embedded)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReady, got.State)

	count, err := dao.CountChunksByResource(res.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	logs, err := dao.GetResourceLogs(res.ID)
	require.NoError(t, err)
	messages := make([]string, 0, len(logs))
	for _, entry := range logs {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "Missing chunks detected, state reset to parsed")
}

func TestPipelineRecordsParseFailure(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(vectorstore.NewMemoryStore())
	collection := createTestCollection(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	res := &model.Resource{
		Name:        "Dead Link",
		SourceModel: "external",
		SourceID:    5,
		OwnerEmail:  "alice@example.com",
		ExternalURL: ts.URL,
		State:       model.StateDraft,
		Collections: []model.Collection{*collection},
	}
	require.NoError(t, dao.CreateResource(res))

	summary, err := svc.ProcessResources(context.Background(), []uint{res.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retrieved)
	assert.Equal(t, 1, summary.Errors)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateRetrieved, got.State)
	assert.Nil(t, got.LockDate)

	logs, err := dao.GetResourceLogs(res.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "error", logs[0].Level)
	assert.Contains(t, logs[0].Message, "Parsing failed")
}

func TestPipelineWithoutCollectionsSkipsEmbedding(t *testing.T) {
	setupTestDB(t)
	svc := newTestService(vectorstore.NewMemoryStore())

	content := "Orphan content without a home."
	res := &model.Resource{
		Name:         "Orphan",
		SourceModel:  "external",
		SourceID:     6,
		OwnerEmail:   "alice@example.com",
		Content:      content,
		ContentHash:  ContentHash(content),
		State:        model.StateParsed,
		Chunker:      model.ChunkerRecursive,
		ChunkSize:    500,
		ChunkOverlap: 50,
	}
	require.NoError(t, dao.CreateResource(res))

	summary, err := svc.ProcessResources(context.Background(), []uint{res.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Chunked)
	assert.Zero(t, summary.Embedded)

	got, err := dao.GetResourceByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateChunked, got.State)
}
