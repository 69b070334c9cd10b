package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/chunker"
	"erp-knowledge-backend/service/parser"
	"erp-knowledge-backend/service/source"
	"erp-knowledge-backend/service/vectorstore"
)

// Summary 一轮流水线推进的统计
type Summary struct {
	Retrieved int `json:"retrieved"`
	Parsed    int `json:"parsed"`
	Chunked   int `json:"chunked"`
	Embedded  int `json:"embedded"`
	Errors    int `json:"errors"`
}

// ProcessResources 把一批资源沿流水线尽量往前推进一轮：
// draft取回、retrieved解析、parsed分块、chunked向量化。
// 每个阶段独立抢锁，单个资源失败只记日志不中断批次。
func (s *Service) ProcessResources(ctx context.Context, ids []uint) (*Summary, error) {
	if len(ids) == 0 {
		return &Summary{}, nil
	}

	summary := &Summary{}
	s.retrieveStage(ctx, ids, summary)
	s.parseStage(ctx, ids, summary)

	if err := s.healMissingChunks(ids); err != nil {
		return summary, err
	}

	s.chunkStage(ids, summary)
	s.embedStage(ctx, ids, summary)
	return summary, nil
}

// retrieveStage 校验来源记录存在后把draft推进到retrieved
func (s *Service) retrieveStage(ctx context.Context, ids []uint, summary *Summary) {
	claimed, err := dao.ClaimResources(ids, model.StateDraft, s.staleLock)
	if err != nil {
		slog.Error("Failed to claim draft resources", "err", err)
		summary.Errors++
		return
	}
	defer s.unlockClaimed(claimed)

	for i := range claimed {
		res := &claimed[i]
		if err := s.sources.Resolve(res).Check(ctx, res); err != nil {
			summary.Errors++
			s.log(res.ID, logError, fmt.Sprintf("Retrieval failed: %v", err))
			continue
		}
		if err := dao.UpdateResourceState(res.ID, model.StateRetrieved); err != nil {
			summary.Errors++
			slog.Error("Failed to advance resource state", "resource_id", res.ID, "err", err)
			continue
		}
		summary.Retrieved++
	}
}

// parseStage 取回原始内容并解析为markdown，retrieved推进到parsed
func (s *Service) parseStage(ctx context.Context, ids []uint, summary *Summary) {
	claimed, err := dao.ClaimResources(ids, model.StateRetrieved, s.staleLock)
	if err != nil {
		slog.Error("Failed to claim retrieved resources", "err", err)
		summary.Errors++
		return
	}
	defer s.unlockClaimed(claimed)

	for i := range claimed {
		res := &claimed[i]
		if err := s.parseOne(ctx, res); err != nil {
			summary.Errors++
			s.log(res.ID, logError, fmt.Sprintf("Parsing failed: %v", err))
			continue
		}
		summary.Parsed++
	}
}

func (s *Service) parseOne(ctx context.Context, res *model.Resource) error {
	// 单个资源的解析有超时上限，慢源不拖垮整批
	pctx, cancel := context.WithTimeout(ctx, s.parseTimeout)
	defer cancel()

	fields, err := s.sources.Resolve(res).Fields(pctx, res)
	if err != nil {
		if errors.Is(err, source.ErrRecordNotFound) {
			return fmt.Errorf("referenced record not found")
		}
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("no indexable fields on source record")
	}

	recordName := res.Name
	sections := make([]string, 0, len(fields))
	for _, field := range fields {
		if recordName == "" {
			recordName = field.RecordName
		}
		p := s.parsers.Select(res.Parser, field.RecordName, field.Mimetype)
		content, err := p.Parse(pctx, parser.Input{
			Resource:    res,
			RecordName:  field.RecordName,
			FieldName:   field.Name,
			Mimetype:    field.Mimetype,
			Raw:         field.Raw,
			DownloadURL: field.DownloadURL,
		})
		if err != nil {
			return fmt.Errorf("field %s: %v", field.Name, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			sections = append(sections, content)
		}
	}
	if len(sections) == 0 {
		return fmt.Errorf("parsing produced no content")
	}

	content := strings.Join(sections, "\n\n")
	updates := map[string]any{
		"content":      content,
		"content_hash": ContentHash(content),
		"state":        model.StateParsed,
	}
	if res.Name == "" && recordName != "" {
		updates["name"] = recordName
	}
	if err := dao.UpdateResource(res.ID, updates); err != nil {
		return fmt.Errorf("failed to store parsed content: %v", err)
	}

	s.log(res.ID, logSuccess, fmt.Sprintf("Parsed %d fields into %d characters", len(fields), len(content)))
	return nil
}

// healMissingChunks 自愈状态漂移：
// 处于chunked/ready但没有分块的资源退回parsed
func (s *Service) healMissingChunks(ids []uint) error {
	resources, err := dao.GetResourcesByIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to reload resources: %v", err)
	}

	for i := range resources {
		res := &resources[i]
		if res.State != model.StateChunked && res.State != model.StateReady {
			continue
		}
		count, err := dao.CountChunksByResource(res.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := dao.UpdateResourceState(res.ID, model.StateParsed); err != nil {
				return err
			}
			s.log(res.ID, logInfo, "Missing chunks detected, state reset to parsed")
		}
	}
	return nil
}

// chunkStage 切分markdown内容，parsed推进到chunked
func (s *Service) chunkStage(ids []uint, summary *Summary) {
	claimed, err := dao.ClaimResources(ids, model.StateParsed, s.staleLock)
	if err != nil {
		slog.Error("Failed to claim parsed resources", "err", err)
		summary.Errors++
		return
	}
	defer s.unlockClaimed(claimed)

	for i := range claimed {
		res := &claimed[i]
		if err := s.chunkOne(res); err != nil {
			summary.Errors++
			s.log(res.ID, logError, fmt.Sprintf("Chunking failed: %v", err))
			continue
		}
		summary.Chunked++
	}
}

func (s *Service) chunkOne(res *model.Resource) error {
	if strings.TrimSpace(res.Content) == "" {
		return fmt.Errorf("no content to chunk")
	}

	parts, err := chunker.Split(res.Chunker, res.Content, res.ChunkSize, res.ChunkOverlap)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("chunking produced no chunks")
	}

	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, model.Chunk{
			ResourceID: res.ID,
			Ordinal:    i,
			Content:    part,
		})
	}
	if err := dao.ReplaceChunks(res.ID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %v", err)
	}
	if err := dao.UpdateResourceState(res.ID, model.StateChunked); err != nil {
		return err
	}

	s.log(res.ID, logSuccess, fmt.Sprintf("Split content into %d chunks", len(chunks)))
	return nil
}

// embedStage 逐集合向量化，至少一个集合成功才算ready
func (s *Service) embedStage(ctx context.Context, ids []uint, summary *Summary) {
	claimed, err := dao.ClaimResources(ids, model.StateChunked, s.staleLock)
	if err != nil {
		slog.Error("Failed to claim chunked resources", "err", err)
		summary.Errors++
		return
	}
	defer s.unlockClaimed(claimed)

	for i := range claimed {
		res := &claimed[i]
		embedded, err := s.embedOne(ctx, res)
		if err != nil {
			summary.Errors++
			s.log(res.ID, logError, fmt.Sprintf("Embedding failed: %v", err))
			continue
		}
		if embedded {
			summary.Embedded++
		}
	}
}

func (s *Service) embedOne(ctx context.Context, res *model.Resource) (bool, error) {
	if len(res.Collections) == 0 {
		s.log(res.ID, logWarning, "No collections found, skipping embedding")
		return false, nil
	}

	chunks, err := dao.GetChunksByResource(res.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load chunks: %v", err)
	}
	if len(chunks) == 0 {
		return false, fmt.Errorf("no chunks to embed")
	}

	texts := make([]string, 0, len(chunks))
	chunkIDs := make([]uint, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Content)
		chunkIDs = append(chunkIDs, chunk.ID)
	}

	anyEmbedded := false
	for _, collection := range res.Collections {
		if !collection.Active {
			continue
		}
		if err := s.embedIntoCollection(ctx, res, &collection, chunks, texts); err != nil {
			s.log(res.ID, logWarning,
				fmt.Sprintf("Embedding into collection %q failed: %v", collection.Name, err))
			continue
		}
		anyEmbedded = true
	}

	if !anyEmbedded {
		s.log(res.ID, logWarning,
			"No collections could embed the resource. Check embedding models and stores.")
		return false, nil
	}

	if err := dao.MarkChunksEmbedded(chunkIDs); err != nil {
		return false, err
	}
	if err := dao.UpdateResourceState(res.ID, model.StateReady); err != nil {
		return false, err
	}
	s.log(res.ID, logSuccess, fmt.Sprintf("Embedded %d chunks", len(chunks)))
	return true, nil
}

func (s *Service) embedIntoCollection(
	ctx context.Context,
	res *model.Resource,
	collection *model.Collection,
	chunks []model.Chunk,
	texts []string,
) error {
	embedder, err := s.embedders.ForModel(collection.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %v", err)
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %v", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	namespace := collection.Namespace()
	dim := collection.EmbeddingDim
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := s.store.EnsureNamespace(ctx, namespace, dim); err != nil {
		return fmt.Errorf("failed to ensure namespace: %v", err)
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, vectorstore.Point{
			ID:         chunk.ID,
			ResourceID: res.ID,
			Vector:     vectors[i],
		})
	}
	if err := s.store.Upsert(ctx, namespace, points); err != nil {
		return fmt.Errorf("failed to upsert vectors: %v", err)
	}
	return nil
}

func (s *Service) unlockClaimed(claimed []model.Resource) {
	if len(claimed) == 0 {
		return
	}
	ids := make([]uint, 0, len(claimed))
	for _, res := range claimed {
		ids = append(ids, res.ID)
	}
	if err := dao.UnlockResources(ids); err != nil {
		slog.Error("Failed to unlock resources", "ids", ids, "err", err)
	}
}
