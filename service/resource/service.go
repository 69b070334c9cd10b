package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/parser"
	"erp-knowledge-backend/service/source"
	"erp-knowledge-backend/service/vectorstore"
)

const (
	logSuccess = "success"
	logInfo    = "info"
	logWarning = "warning"
	logError   = "error"
)

// Service 资源生命周期编排：建档、流水线推进、重建索引、集合变更清理
type Service struct {
	sources   *source.Registry
	parsers   *parser.Registry
	embedders embedding.Factory
	store     vectorstore.Store

	parseTimeout time.Duration
	staleLock    time.Duration
}

func NewService(
	sources *source.Registry,
	parsers *parser.Registry,
	embedders embedding.Factory,
	store vectorstore.Store,
	parseTimeout, staleLock time.Duration,
) *Service {
	return &Service{
		sources:      sources,
		parsers:      parsers,
		embedders:    embedders,
		store:        store,
		parseTimeout: parseTimeout,
		staleLock:    staleLock,
	}
}

// ContentHash 内容的SHA256摘要，空内容返回空串
func ContentHash(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Create 建档资源并继承首个集合的切分配置，
// 关联了集合的资源立即走一遍流水线
func (s *Service) Create(ctx context.Context, resource *model.Resource, collectionIDs []uint) error {
	collections, err := dao.GetCollectionsByIDs(collectionIDs)
	if err != nil {
		return fmt.Errorf("failed to load collections: %v", err)
	}
	if len(collectionIDs) > 0 && len(collections) != len(collectionIDs) {
		return fmt.Errorf("some collections not found")
	}

	if len(collections) > 0 {
		defaults := collections[0]
		resource.ChunkSize = defaults.DefaultChunkSize
		resource.ChunkOverlap = defaults.DefaultChunkOverlap
		resource.Chunker = defaults.DefaultChunker
		resource.Parser = defaults.DefaultParser
	}
	resource.Collections = collections

	if err := dao.CreateResource(resource); err != nil {
		return fmt.Errorf("failed to create resource: %v", err)
	}

	if len(collections) == 0 {
		slog.Info("Resource created without collection, skipping auto-process",
			"resource_id", resource.ID)
		return nil
	}

	// 自动处理失败不影响建档，留待调度器重试
	if _, err := s.ProcessResources(ctx, []uint{resource.ID}); err != nil {
		slog.Error("Failed to auto-process resource on creation",
			"resource_id", resource.ID,
			"err", err)
		s.log(resource.ID, logError, fmt.Sprintf("Auto-process failed: %v", err))
	}
	return nil
}

// UpdateContent 直接改写内容并重算摘要，
// 已就绪的资源内容变化时降级回parsed触发重建
func (s *Service) UpdateContent(id uint, content string) error {
	resource, err := dao.GetResourceByID(id)
	if err != nil {
		return fmt.Errorf("failed to load resource: %v", err)
	}
	if resource == nil {
		return fmt.Errorf("resource %d not found", id)
	}

	newHash := ContentHash(content)
	updates := map[string]any{
		"content":      content,
		"content_hash": newHash,
	}
	if newHash != resource.ContentHash && resource.State == model.StateReady {
		updates["state"] = model.StateParsed
		s.log(id, logInfo, "Content changed detected, resource will be re-indexed")
	}
	return dao.UpdateResource(id, updates)
}

// RecomputeHash 重新校验内容摘要，发现漂移时触发重建
func (s *Service) RecomputeHash(id uint) error {
	resource, err := dao.GetResourceByID(id)
	if err != nil {
		return fmt.Errorf("failed to load resource: %v", err)
	}
	if resource == nil {
		return fmt.Errorf("resource %d not found", id)
	}
	if resource.Content == "" {
		s.log(id, logWarning, "No content to hash")
		return nil
	}

	newHash := ContentHash(resource.Content)
	if newHash == resource.ContentHash {
		s.log(id, logSuccess, fmt.Sprintf("Hash verified: content unchanged (%s...)", newHash[:16]))
		return nil
	}

	updates := map[string]any{"content_hash": newHash}
	if resource.State == model.StateReady {
		updates["state"] = model.StateParsed
	}
	oldHash := resource.ContentHash
	if oldHash == "" {
		oldHash = "none"
	} else if len(oldHash) > 16 {
		oldHash = oldHash[:16]
	}
	s.log(id, logInfo, fmt.Sprintf("Hash updated: content has changed. Old: %s... -> New: %s...",
		oldHash, newHash[:16]))
	return dao.UpdateResource(id, updates)
}

// Reset 资源回到draft并解锁，下一轮处理从头跑
func (s *Service) Reset(ids []uint) error {
	if err := dao.UpdateResourceStates(ids, model.StateDraft); err != nil {
		return fmt.Errorf("failed to reset resources: %v", err)
	}
	return dao.UnlockResources(ids)
}

// Unlock 手工释放处理锁
func (s *Service) Unlock(ids []uint) error {
	return dao.UnlockResources(ids)
}

// Reindex 清掉资源在各集合中的向量并降级回chunked，
// 下一轮embed阶段重新写入
func (s *Service) Reindex(ctx context.Context, id uint) error {
	resource, err := dao.GetResourceByID(id)
	if err != nil {
		return fmt.Errorf("failed to load resource: %v", err)
	}
	if resource == nil {
		return fmt.Errorf("resource %d not found", id)
	}
	if len(resource.Collections) == 0 {
		return fmt.Errorf("resource does not belong to any collections")
	}

	chunks, err := dao.GetChunksByResource(id)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %v", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks found for this resource")
	}

	if err := dao.UpdateResourceState(id, model.StateChunked); err != nil {
		return fmt.Errorf("failed to update resource state: %v", err)
	}
	if err := dao.MarkResourceChunksUnembedded(id); err != nil {
		return fmt.Errorf("failed to mark chunks for re-embedding: %v", err)
	}

	chunkIDs := make([]uint, 0, len(chunks))
	for _, chunk := range chunks {
		chunkIDs = append(chunkIDs, chunk.ID)
	}
	for _, collection := range resource.Collections {
		if err := s.store.Delete(ctx, collection.Namespace(), chunkIDs); err != nil {
			slog.Warn("Failed to remove vectors during reindex",
				"resource_id", id,
				"collection_id", collection.ID,
				"err", err)
		}
	}

	s.log(id, logInfo, fmt.Sprintf("Reset resource for re-embedding in %d collections", len(resource.Collections)))
	return nil
}

// ReindexCollection 重建整个集合：丢弃命名空间并把所有资源降级回chunked
func (s *Service) ReindexCollection(ctx context.Context, collectionID uint) error {
	collection, err := dao.GetCollectionByID(collectionID)
	if err != nil {
		return fmt.Errorf("failed to load collection: %v", err)
	}
	if collection == nil {
		return fmt.Errorf("collection %d not found", collectionID)
	}

	if err := s.store.DropNamespace(ctx, collection.Namespace()); err != nil {
		slog.Warn("Failed to drop namespace during collection reindex",
			"collection_id", collectionID,
			"err", err)
	}
	if err := s.store.EnsureNamespace(ctx, collection.Namespace(), collection.EmbeddingDim); err != nil {
		return fmt.Errorf("failed to recreate namespace: %v", err)
	}

	resourceIDs, err := dao.GetCollectionResourceIDs(collectionID)
	if err != nil {
		return fmt.Errorf("failed to list collection resources: %v", err)
	}

	for _, resourceID := range resourceIDs {
		count, err := dao.CountChunksByResource(resourceID)
		if err != nil || count == 0 {
			continue
		}
		if err := dao.UpdateResourceState(resourceID, model.StateChunked); err != nil {
			return fmt.Errorf("failed to demote resource %d: %v", resourceID, err)
		}
		if err := dao.MarkResourceChunksUnembedded(resourceID); err != nil {
			return fmt.Errorf("failed to mark chunks for re-embedding: %v", err)
		}
	}
	return nil
}

// SetCollections 调整资源所属集合，
// 被移出的集合要清理对应命名空间里的向量
func (s *Service) SetCollections(ctx context.Context, resourceID uint, collectionIDs []uint) error {
	resource, err := dao.GetResourceByID(resourceID)
	if err != nil {
		return fmt.Errorf("failed to load resource: %v", err)
	}
	if resource == nil {
		return fmt.Errorf("resource %d not found", resourceID)
	}

	collections, err := dao.GetCollectionsByIDs(collectionIDs)
	if err != nil {
		return fmt.Errorf("failed to load collections: %v", err)
	}
	if len(collections) != len(collectionIDs) {
		return fmt.Errorf("some collections not found")
	}

	kept := make(map[uint]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		kept[id] = true
	}

	chunks, err := dao.GetChunksByResource(resourceID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %v", err)
	}
	chunkIDs := make([]uint, 0, len(chunks))
	for _, chunk := range chunks {
		chunkIDs = append(chunkIDs, chunk.ID)
	}

	for _, old := range resource.Collections {
		if kept[old.ID] || len(chunkIDs) == 0 {
			continue
		}
		if err := s.store.Delete(ctx, old.Namespace(), chunkIDs); err != nil {
			slog.Warn("Failed to remove vectors after collection removal",
				"resource_id", resourceID,
				"collection_id", old.ID,
				"err", err)
		}
	}

	if err := dao.ReplaceResourceCollections(resource, collections); err != nil {
		return fmt.Errorf("failed to update collections: %v", err)
	}

	// 脱离所有集合的就绪资源退回chunked，分块保留
	if len(collections) == 0 && resource.State == model.StateReady {
		if err := dao.UpdateResourceState(resourceID, model.StateChunked); err != nil {
			return err
		}
		s.log(resourceID, logInfo, "Reset to 'chunked' state after removal from all collections")
	}
	return nil
}

// Delete 删除资源前先清理它在各集合中的向量
func (s *Service) Delete(ctx context.Context, id uint) error {
	resource, err := dao.GetResourceByID(id)
	if err != nil {
		return fmt.Errorf("failed to load resource: %v", err)
	}
	if resource == nil {
		return nil
	}

	chunks, err := dao.GetChunksByResource(id)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %v", err)
	}
	if len(chunks) > 0 {
		chunkIDs := make([]uint, 0, len(chunks))
		for _, chunk := range chunks {
			chunkIDs = append(chunkIDs, chunk.ID)
		}
		for _, collection := range resource.Collections {
			if err := s.store.Delete(ctx, collection.Namespace(), chunkIDs); err != nil {
				slog.Warn("Failed to remove vectors before resource deletion",
					"resource_id", id,
					"collection_id", collection.ID,
					"err", err)
			}
		}
	}

	return dao.DeleteResource(id)
}

func (s *Service) log(resourceID uint, level, message string) {
	if err := dao.AddResourceLog(resourceID, level, message); err != nil {
		slog.Error("Failed to write resource log",
			"resource_id", resourceID,
			"err", err)
	}
}
