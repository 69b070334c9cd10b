package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("failed to login")

	ErrCreateResource   = errors.New("failed to create resource")
	ErrGetResource      = errors.New("failed to get resource")
	ErrGetResources     = errors.New("failed to get resources")
	ErrDeleteResource   = errors.New("failed to delete resource")
	ErrUpdateResource   = errors.New("failed to update resource")
	ErrProcessResources = errors.New("failed to process resources")
	ErrUnlockResources  = errors.New("failed to unlock resources")
	ErrResetResources   = errors.New("failed to reset resources")
	ErrRecomputeHash    = errors.New("failed to recompute content hash")
	ErrReindexResource  = errors.New("failed to reindex resource")
	ErrGetResourceLogs  = errors.New("failed to get resource logs")

	ErrCreateCollection  = errors.New("failed to create collection")
	ErrGetCollections    = errors.New("failed to get collections")
	ErrUpdateCollection  = errors.New("failed to update collection")
	ErrDeleteCollection  = errors.New("failed to delete collection")
	ErrReindexCollection = errors.New("failed to reindex collection")

	ErrCreateGlossary     = errors.New("failed to create glossary")
	ErrGetGlossaries      = errors.New("failed to get glossaries")
	ErrDeleteGlossary     = errors.New("failed to delete glossary")
	ErrCreateGlossaryTerm = errors.New("failed to create glossary term")
	ErrDeleteGlossaryTerm = errors.New("failed to delete glossary term")

	ErrSearch = errors.New("failed to search knowledge")

	ErrRegisterAttachment = errors.New("failed to register attachment")
	ErrGetAttachments     = errors.New("failed to get attachments")
	ErrDeleteAttachment   = errors.New("failed to delete attachment")
	ErrGetPreSignedURL    = errors.New("failed to get presigned url")

	ErrRunSchedulerJob = errors.New("failed to run scheduler job")
)
