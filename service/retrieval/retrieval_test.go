package retrieval

import (
	"context"
	"strings"
	"testing"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/access"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testDim = 64

func setupTestDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Collection{},
		&model.Resource{},
		&model.Chunk{},
		&model.Glossary{},
		&model.GlossaryTerm{},
	))
	dao.DB = db
}

type fixture struct {
	engine     *Engine
	store      *vectorstore.MemoryStore
	collection *model.Collection
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	setupTestDB(t)

	store := vectorstore.NewMemoryStore()
	factory := embedding.NewLocalFactory(testDim)

	collection := &model.Collection{
		Name:           "kb",
		Active:         true,
		EmbeddingModel: "local",
		EmbeddingDim:   testDim,
	}
	require.NoError(t, dao.CreateCollection(collection))
	require.NoError(t, store.EnsureNamespace(context.Background(), collection.Namespace(), testDim))

	return &fixture{
		engine:     NewEngine(factory, store, access.OwnerOrPublic{}),
		store:      store,
		collection: collection,
	}
}

// seedChunk 入库一个带向量的分块，向量和检索共用同一个本地embedder
func (f *fixture) seedChunk(t *testing.T, res *model.Resource, content string) *model.Chunk {
	t.Helper()
	if res.ID == 0 {
		require.NoError(t, dao.CreateResource(res))
	}
	chunk := &model.Chunk{ResourceID: res.ID, Content: content, Embedded: true}
	require.NoError(t, dao.DB.Create(chunk).Error)

	vector, err := embedding.NewLocalEmbedder(testDim).EmbedQuery(context.Background(), content)
	require.NoError(t, err)
	require.NoError(t, f.store.Upsert(context.Background(), f.collection.Namespace(), []vectorstore.Point{
		{ID: chunk.ID, ResourceID: res.ID, Vector: vector},
	}))
	return chunk
}

func TestSearchReturnsRankedHits(t *testing.T) {
	f := setupFixture(t)

	res := &model.Resource{
		Name: "Policies", SourceModel: "external", SourceID: 1,
		OwnerEmail: "alice@example.com", State: model.StateReady,
	}
	f.seedChunk(t, res, "Refund policy allows money back within thirty days.")
	f.seedChunk(t, res, "Office plants need water twice a week.")

	results, err := f.engine.Search(context.Background(), "refund money back",
		[]uint{f.collection.ID}, 5, 0.3, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, res.ID, results[0].ResourceID)
	assert.Equal(t, "Policies", results[0].ResourceName)
	assert.Contains(t, results[0].Content, "Refund policy")
	assert.Greater(t, results[0].Score, float32(0.3))
}

func TestSearchFiltersByAccess(t *testing.T) {
	f := setupFixture(t)

	private := &model.Resource{
		Name: "Private", SourceModel: "external", SourceID: 1,
		OwnerEmail: "alice@example.com", State: model.StateReady,
	}
	public := &model.Resource{
		Name: "Public", SourceModel: "external", SourceID: 2,
		OwnerEmail: "alice@example.com", Public: true, State: model.StateReady,
	}
	f.seedChunk(t, private, "Salary bands for engineering roles.")
	f.seedChunk(t, public, "Salary negotiation tips for everyone.")

	results, err := f.engine.Search(context.Background(), "salary",
		[]uint{f.collection.ID}, 5, 0.1, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Public", results[0].ResourceName)
}

func TestSearchEmptyQueryAndCollections(t *testing.T) {
	f := setupFixture(t)

	results, err := f.engine.Search(context.Background(), "   ", []uint{f.collection.ID}, 5, 0.3, "a@b.c")
	require.NoError(t, err)
	assert.Nil(t, results)

	results, err = f.engine.Search(context.Background(), "query", nil, 5, 0.3, "a@b.c")
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchSkipsInactiveCollections(t *testing.T) {
	f := setupFixture(t)

	res := &model.Resource{
		Name: "Doc", SourceModel: "external", SourceID: 1,
		OwnerEmail: "alice@example.com", State: model.StateReady,
	}
	f.seedChunk(t, res, "Inventory counts run every month end.")

	require.NoError(t, dao.UpdateCollection(f.collection.ID, map[string]any{"active": false}))

	results, err := f.engine.Search(context.Background(), "inventory counts",
		[]uint{f.collection.ID}, 5, 0.1, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDropsStaleVectorReferences(t *testing.T) {
	f := setupFixture(t)

	res := &model.Resource{
		Name: "Doc", SourceModel: "external", SourceID: 1,
		OwnerEmail: "alice@example.com", State: model.StateReady,
	}
	chunk := f.seedChunk(t, res, "Procurement approvals take two days.")

	// 数据库侧删掉分块，向量库里留下悬挂引用
	require.NoError(t, dao.DB.Delete(&model.Chunk{}, chunk.ID).Error)

	results, err := f.engine.Search(context.Background(), "procurement approvals",
		[]uint{f.collection.ID}, 5, 0.1, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRespectsTopK(t *testing.T) {
	f := setupFixture(t)

	res := &model.Resource{
		Name: "Doc", SourceModel: "external", SourceID: 1,
		OwnerEmail: "alice@example.com", State: model.StateReady,
	}
	f.seedChunk(t, res, "shipping rates for zone one")
	f.seedChunk(t, res, "shipping rates for zone two")
	f.seedChunk(t, res, "shipping rates for zone three")

	results, err := f.engine.Search(context.Background(), "shipping rates",
		[]uint{f.collection.ID}, 2, 0.1, "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBuildContextWithGlossaryAndLinks(t *testing.T) {
	f := setupFixture(t)

	glossary := &model.Glossary{
		Name:   "ERP Terms",
		Active: true,
		Terms: []model.GlossaryTerm{
			{Term: "SO", Definition: "Sales Order", Active: true},
			{Term: "BOM", Definition: "Bill of Materials", Active: true},
		},
		Collections: []model.Collection{*f.collection},
	}
	require.NoError(t, dao.CreateGlossary(glossary))

	results := []Result{
		{
			ChunkID: 1, ResourceID: 10, ResourceName: "Handbook.pdf",
			SourceModel: model.SourceModelAttachment, SourceID: 7,
			Content: "Orders ship within two days.",
		},
		{
			ChunkID: 2, ResourceID: 11, ResourceName: "Note",
			SourceModel: "crm_note", SourceID: 3,
			Content: "Customer prefers email contact.",
		},
	}

	out, err := f.engine.BuildContext(results, []uint{f.collection.ID})
	require.NoError(t, err)
	assert.Contains(t, out, "## Relevant Documents:")
	assert.Contains(t, out, "Orders ship within two days.\n---\nCustomer prefers email contact.")
	assert.Contains(t, out, "## Glossary: ERP Terms")
	// 术语按字典序
	assert.Less(t,
		strings.Index(out, "- **BOM**: Bill of Materials"),
		strings.Index(out, "- **SO**: Sales Order"))
	assert.Contains(t, out, "## Tài liệu tham khảo (có thể tải về):")
	assert.Contains(t, out, "- [Handbook.pdf](/api/attachments/7/download)")
	assert.NotContains(t, out, "- [Note]")
	assert.Contains(t, out, "## Instructions:")
	assert.Contains(t, out,
		"- Always render tabular data as a markdown table with a header row and a separator row")
}

func TestBuildContextEmpty(t *testing.T) {
	f := setupFixture(t)

	out, err := f.engine.BuildContext(nil, []uint{f.collection.ID})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBuildContextGlossaryOnly(t *testing.T) {
	f := setupFixture(t)

	glossary := &model.Glossary{
		Name:        "Terms",
		Active:      true,
		Terms:       []model.GlossaryTerm{{Term: "RMA", Definition: "Return Merchandise Authorization", Active: true}},
		Collections: []model.Collection{*f.collection},
	}
	require.NoError(t, dao.CreateGlossary(glossary))

	out, err := f.engine.BuildContext(nil, []uint{f.collection.ID})
	require.NoError(t, err)
	assert.Contains(t, out, "## Glossary: Terms")
	assert.NotContains(t, out, "## Relevant Documents:")
}
