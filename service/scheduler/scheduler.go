package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/model"
	"erp-knowledge-backend/service/resource"

	"github.com/robfig/cron/v3"
)

// Options 定时任务配置
type Options struct {
	ProcessSpec  string
	DiscoverSpec string

	ProcessBatchSize  int
	DiscoverBatchSize int

	// DefaultCollectionID 自动索引附件的目标集合，0表示取第一个可用集合
	DefaultCollectionID uint

	StaleLock time.Duration
}

// Scheduler 后台批处理：周期推进流水线、自动发现未索引附件。
// 所有任务与手动触发入口共用同一套处理代码，可安全并发。
type Scheduler struct {
	resources *resource.Service
	opts      Options
	cron      *cron.Cron
}

func New(resources *resource.Service, opts Options) *Scheduler {
	return &Scheduler{
		resources: resources,
		opts:      opts,
		cron:      cron.New(),
	}
}

// Start 注册并启动定时任务
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.ProcessSpec, func() {
		if _, err := s.ProcessPending(context.Background()); err != nil {
			slog.Error("Auto-process job failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to register process job: %v", err)
	}

	if _, err := s.cron.AddFunc(s.opts.DiscoverSpec, func() {
		if _, err := s.IndexAttachments(context.Background()); err != nil {
			slog.Error("Auto-index attachments job failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to register discover job: %v", err)
	}

	s.cron.Start()
	slog.Info("Scheduler started",
		"process_spec", s.opts.ProcessSpec,
		"discover_spec", s.opts.DiscoverSpec)
	return nil
}

// Stop 停止调度，等待在途任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ProcessPending 找一批未就绪且未加锁、已关联集合的资源推进流水线
func (s *Scheduler) ProcessPending(ctx context.Context) (*resource.Summary, error) {
	pending, err := dao.FindPendingResources(s.opts.ProcessBatchSize, s.opts.StaleLock)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending resources: %v", err)
	}
	if len(pending) == 0 {
		slog.Info("No resources to auto-process")
		return &resource.Summary{}, nil
	}

	ids := make([]uint, 0, len(pending))
	for _, res := range pending {
		ids = append(ids, res.ID)
	}

	summary, err := s.resources.ProcessResources(ctx, ids)
	if err != nil {
		return summary, err
	}

	slog.Info("Auto-process job completed",
		"candidates", len(ids),
		"retrieved", summary.Retrieved,
		"parsed", summary.Parsed,
		"chunked", summary.Chunked,
		"embedded", summary.Embedded,
		"errors", summary.Errors)
	return summary, nil
}

// IndexAttachments 为尚未建档且mimetype可索引的附件创建资源，
// 挂到配置的集合（或第一个可用集合）并立即处理
func (s *Scheduler) IndexAttachments(ctx context.Context) (int, error) {
	attachments, err := dao.FindUnindexedAttachments(s.opts.DiscoverBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find unindexed attachments: %v", err)
	}
	if len(attachments) == 0 {
		slog.Info("No new attachments to index")
		return 0, nil
	}

	collection, err := s.targetCollection()
	if err != nil {
		return 0, err
	}
	if collection == nil {
		slog.Warn("No valid collection found for auto-indexing")
		return 0, nil
	}

	indexed := 0
	for _, att := range attachments {
		res := &model.Resource{
			Name:        att.FileName,
			SourceModel: model.SourceModelAttachment,
			SourceID:    att.ID,
			OwnerEmail:  att.OwnerEmail,
		}
		if err := s.resources.Create(ctx, res, []uint{collection.ID}); err != nil {
			slog.Error("Failed to index attachment",
				"attachment_id", att.ID,
				"err", err)
			continue
		}
		indexed++
	}

	slog.Info("Auto-index attachments job completed",
		"found", len(attachments),
		"indexed", indexed,
		"collection_id", collection.ID)
	return indexed, nil
}

// IndexAttachment MQ上传事件的单附件入口
func (s *Scheduler) IndexAttachment(ctx context.Context, attachmentID uint) error {
	att, err := dao.GetAttachmentByID(attachmentID)
	if err != nil {
		return fmt.Errorf("failed to load attachment: %v", err)
	}
	if att == nil {
		return fmt.Errorf("attachment %d not found", attachmentID)
	}

	existing, err := dao.GetResourceBySource(model.SourceModelAttachment, att.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		// 已建档，只补跑流水线
		_, err := s.resources.ProcessResources(ctx, []uint{existing.ID})
		return err
	}

	collection, err := s.targetCollection()
	if err != nil {
		return err
	}
	if collection == nil {
		return fmt.Errorf("no valid collection found for indexing")
	}

	res := &model.Resource{
		Name:        att.FileName,
		SourceModel: model.SourceModelAttachment,
		SourceID:    att.ID,
		OwnerEmail:  att.OwnerEmail,
	}
	return s.resources.Create(ctx, res, []uint{collection.ID})
}

func (s *Scheduler) targetCollection() (*model.Collection, error) {
	if s.opts.DefaultCollectionID != 0 {
		collection, err := dao.GetCollectionByID(s.opts.DefaultCollectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load default collection: %v", err)
		}
		if collection != nil {
			return collection, nil
		}
		slog.Warn("Configured default collection not found, falling back",
			"collection_id", s.opts.DefaultCollectionID)
	}
	return dao.FindDefaultCollection()
}
