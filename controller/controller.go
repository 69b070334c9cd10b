package controller

import (
	"erp-knowledge-backend/service/attachment"
	"erp-knowledge-backend/service/resource"
	"erp-knowledge-backend/service/retrieval"
	"erp-knowledge-backend/service/scheduler"
)

// 各controller共享的服务实例，启动时注入一次
var (
	resources   *resource.Service
	engine      *retrieval.Engine
	attachments *attachment.Store
	jobs        *scheduler.Scheduler
)

func Init(
	resourceService *resource.Service,
	retrievalEngine *retrieval.Engine,
	attachmentStore *attachment.Store,
	schedulerInstance *scheduler.Scheduler,
) {
	resources = resourceService
	engine = retrievalEngine
	attachments = attachmentStore
	jobs = schedulerInstance
}
