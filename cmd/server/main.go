package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"erp-knowledge-backend/config"
	"erp-knowledge-backend/controller"
	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/router"
	"erp-knowledge-backend/service/access"
	"erp-knowledge-backend/service/attachment"
	"erp-knowledge-backend/service/embedding"
	"erp-knowledge-backend/service/mq"
	"erp-knowledge-backend/service/parser"
	"erp-knowledge-backend/service/resource"
	"erp-knowledge-backend/service/retrieval"
	"erp-knowledge-backend/service/scheduler"
	"erp-knowledge-backend/service/source"
	"erp-knowledge-backend/service/vectorstore"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := config.Load(configPath); err != nil {
		slog.Error("Failed to load config", "path", configPath, "err", err)
		os.Exit(1)
	}
	cfg := config.Cfg

	if err := dao.Init(cfg.DB.DSN); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	if err := dao.Migrate(); err != nil {
		slog.Error("Failed to migrate database", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := vectorstore.NewMilvusStore(ctx, cfg.Milvus.Endpoint, cfg.Milvus.APIKey)
	if err != nil {
		slog.Error("Failed to connect to milvus", "err", err)
		os.Exit(1)
	}

	attachmentStore := attachment.NewStore()
	sources := source.NewRegistry(attachmentStore)
	embedders := embedding.NewOpenAIFactory(cfg.Model.BaseURL, cfg.Model.APIKey)

	parserOpts := []parser.RegistryOption{
		parser.WithImageSink(attachmentStore),
		parser.WithOCRCorrection(parser.NewOpenAIModelFactory(cfg.Model.BaseURL, cfg.Model.APIKey)),
	}
	if cfg.Model.OCRModel != "" {
		ocr, err := parser.NewVisionOCR(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.OCRModel)
		if err != nil {
			slog.Error("Failed to create OCR engine", "err", err)
			os.Exit(1)
		}
		parserOpts = append(parserOpts, parser.WithOCREngine(ocr))
	}
	parsers := parser.NewRegistry(parserOpts...)

	staleLock := time.Duration(cfg.Pipeline.StaleLockMinutes) * time.Minute
	resources := resource.NewService(
		sources, parsers, embedders, store,
		time.Duration(cfg.Pipeline.ParseTimeoutSeconds)*time.Second,
		staleLock,
	)
	engine := retrieval.NewEngine(embedders, store, access.OwnerOrPublic{})

	jobs := scheduler.New(resources, scheduler.Options{
		ProcessSpec:         cfg.Scheduler.ProcessSpec,
		DiscoverSpec:        cfg.Scheduler.DiscoverSpec,
		ProcessBatchSize:    cfg.Scheduler.ProcessBatchSize,
		DiscoverBatchSize:   cfg.Scheduler.DiscoverBatchSize,
		DefaultCollectionID: cfg.Scheduler.DefaultCollectionID,
		StaleLock:           staleLock,
	})
	if cfg.Scheduler.Enabled {
		if err := jobs.Start(); err != nil {
			slog.Error("Failed to start scheduler", "err", err)
			os.Exit(1)
		}
		defer jobs.Stop()
	}

	if cfg.MQ.Enabled {
		if err := mq.Init(cfg.MQ.NameServer); err != nil {
			slog.Error("Failed to init mq", "err", err)
			os.Exit(1)
		}
		if err := mq.Run(jobs); err != nil {
			slog.Error("Failed to start mq", "err", err)
			os.Exit(1)
		}
		defer mq.Shutdown()
	}

	controller.Init(resources, engine, attachmentStore, jobs)

	r := router.Register()
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	slog.Info("Server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		slog.Error("Server exited", "err", err)
		os.Exit(1)
	}
}
