package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/access"
	"erp-knowledge-backend/service/attachment"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/vectorstore"
)

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = float32(0.3)
)

// Result 一条检索命中，带回源资源信息用于权限过滤和引用展示
type Result struct {
	ChunkID      uint    `json:"chunk_id"`
	ResourceID   uint    `json:"resource_id"`
	ResourceName string  `json:"resource_name"`
	SourceModel  string  `json:"source_model"`
	SourceID     uint    `json:"source_id"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

// Engine 语义检索：向量召回、阈值过滤、权限过滤、上下文拼装
type Engine struct {
	embedders embedding.Factory
	store     vectorstore.Store
	checker   access.Checker
}

func NewEngine(embedders embedding.Factory, store vectorstore.Store, checker access.Checker) *Engine {
	return &Engine{
		embedders: embedders,
		store:     store,
		checker:   checker,
	}
}

// Search 在给定集合上做语义检索。
// 空查询直接返回空结果，RAG是增强而不是硬依赖。
// 基础设施错误向上抛，权限不足的命中静默丢弃。
func (e *Engine) Search(
	ctx context.Context,
	query string,
	collectionIDs []uint,
	topK int,
	minSimilarity float32,
	userEmail string,
) ([]Result, error) {
	if strings.TrimSpace(query) == "" || len(collectionIDs) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	collections, err := dao.GetCollectionsByIDs(collectionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %v", err)
	}

	// 同一chunk可能在多个集合命中，保留最高分
	bestByChunk := make(map[uint]vectorstore.Match)
	for i := range collections {
		collection := &collections[i]
		if !collection.Active {
			continue
		}

		embedder, err := e.embedders.ForModel(collection.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder for collection %q: %v", collection.Name, err)
		}
		vector, err := embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %v", err)
		}

		matches, err := e.store.Query(ctx, collection.Namespace(), vector, topK, minSimilarity)
		if err != nil {
			return nil, fmt.Errorf("failed to query collection %q: %v", collection.Name, err)
		}
		for _, match := range matches {
			if best, ok := bestByChunk[match.ID]; !ok || match.Score > best.Score {
				bestByChunk[match.ID] = match
			}
		}
	}
	if len(bestByChunk) == 0 {
		return nil, nil
	}

	merged := make([]vectorstore.Match, 0, len(bestByChunk))
	for _, match := range bestByChunk {
		merged = append(merged, match)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}

	return e.hydrate(merged, userEmail)
}

// hydrate 命中回表取chunk内容和资源信息，顺带做权限过滤
func (e *Engine) hydrate(matches []vectorstore.Match, userEmail string) ([]Result, error) {
	chunkIDs := make([]uint, 0, len(matches))
	resourceIDs := make([]uint, 0, len(matches))
	for _, match := range matches {
		chunkIDs = append(chunkIDs, match.ID)
		resourceIDs = append(resourceIDs, match.ResourceID)
	}

	chunks, err := dao.GetChunksByIDs(chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %v", err)
	}
	chunkByID := make(map[uint]*model.Chunk, len(chunks))
	for i := range chunks {
		chunkByID[chunks[i].ID] = &chunks[i]
	}

	resources, err := dao.GetResourcesByIDs(resourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %v", err)
	}
	resourceByID := make(map[uint]*model.Resource, len(resources))
	for i := range resources {
		resourceByID[resources[i].ID] = &resources[i]
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		chunk := chunkByID[match.ID]
		resource := resourceByID[match.ResourceID]
		// 向量库和数据库间的悬挂引用静默跳过
		if chunk == nil || resource == nil {
			slog.Warn("Dropping stale vector match", "chunk_id", match.ID)
			continue
		}
		if !e.checker.CanRead(userEmail, resource) {
			continue
		}
		results = append(results, Result{
			ChunkID:      chunk.ID,
			ResourceID:   resource.ID,
			ResourceName: resource.Name,
			SourceModel:  resource.SourceModel,
			SourceID:     resource.SourceID,
			Content:      chunk.Content,
			Score:        match.Score,
		})
	}
	return results, nil
}

// BuildContext 把检索结果拼装成注入对话的system提示块。
// 没有命中也没有术语表时返回空串，调用方跳过RAG。
func (e *Engine) BuildContext(results []Result, collectionIDs []uint) (string, error) {
	glossarySection, err := glossaryContext(collectionIDs)
	if err != nil {
		return "", err
	}
	if len(results) == 0 && glossarySection == "" {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions based on " +
		"the provided document context.\n\n")

	if len(results) > 0 {
		parts := make([]string, 0, len(results))
		for _, result := range results {
			parts = append(parts, result.Content)
		}
		b.WriteString("## Relevant Documents:\n\n")
		b.WriteString(strings.Join(parts, "\n---\n"))
	}

	if glossarySection != "" {
		b.WriteString("\n\n")
		b.WriteString(glossarySection)
	}

	if links := downloadLinks(results); len(links) > 0 {
		b.WriteString("\n\n## Tài liệu tham khảo (có thể tải về):\n")
		b.WriteString(strings.Join(links, "\n"))
	}

	b.WriteString("\n\n## Instructions:\n" +
		"- Answer based on the provided documents\n" +
		"- If the answer is not in the documents, say so\n" +
		"- Use the glossary to understand internal terms correctly\n" +
		"- Always render tabular data as a markdown table with a header row and a separator row\n" +
		"- Reference links are already provided above, do not repeat them in your answer")

	return b.String(), nil
}

// glossaryContext 集合关联术语表的"## Glossary"小节，术语按字典序
func glossaryContext(collectionIDs []uint) (string, error) {
	glossaries, err := dao.GetGlossariesByCollections(collectionIDs)
	if err != nil {
		return "", fmt.Errorf("failed to load glossaries: %v", err)
	}

	sections := make([]string, 0, len(glossaries))
	for _, glossary := range glossaries {
		if len(glossary.Terms) == 0 {
			continue
		}
		terms := make([]model.GlossaryTerm, len(glossary.Terms))
		copy(terms, glossary.Terms)
		sort.Slice(terms, func(i, j int) bool {
			return terms[i].Term < terms[j].Term
		})

		lines := make([]string, 0, len(terms))
		for _, term := range terms {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", term.Term, term.Definition))
		}
		sections = append(sections, fmt.Sprintf("## Glossary: %s\n%s",
			glossary.Name, strings.Join(lines, "\n")))
	}
	return strings.Join(sections, "\n\n"), nil
}

// downloadLinks 附件类资源的去重下载链接
func downloadLinks(results []Result) []string {
	seen := make(map[uint]bool)
	var links []string
	for _, result := range results {
		if result.SourceModel != model.SourceModelAttachment || seen[result.ResourceID] {
			continue
		}
		seen[result.ResourceID] = true
		links = append(links, fmt.Sprintf("- [%s](%s)",
			result.ResourceName, attachment.DownloadPath(result.SourceID)))
	}
	return links
}
