package job

import (
	"Capstone/internal/model"
	"Capstone/internal/repository"
	"Capstone/internal/service"
	"context"
	log "log/slog"
	"time"
)

// CleanupScheduledJob 清理到期的待清理资产，单项失败不影响同批其他项
type CleanupScheduledJob struct {
	mediaRepo repository.MediaRepo
	mediaSvc  service.MediaService
	batchSize int
}

func NewCleanupScheduledJob(mediaRepo repository.MediaRepo, mediaSvc service.MediaService, batchSize int) *CleanupScheduledJob {
	return &CleanupScheduledJob{
		mediaRepo: mediaRepo,
		mediaSvc:  mediaSvc,
		batchSize: batchSize,
	}
}

func (s *CleanupScheduledJob) ID() string {
	return "cleanup_scheduled"
}

func (s *CleanupScheduledJob) Run(ctx context.Context) error {
	assets, err := s.mediaRepo.DueForCleanup(ctx, time.Now(), s.batchSize)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	succeeded, failed := 0, 0
	var freed int64
	for _, asset := range assets {
		bytes, cleanupErr := s.mediaSvc.CleanupAsset(ctx, asset, model.TriggerScheduled)
		if cleanupErr != nil {
			failed++
			log.Error("scheduled cleanup item failed", "assetID", asset.ID, "err", cleanupErr)
			continue
		}
		succeeded++
		freed += bytes
	}

	log.Info("scheduled cleanup batch finished",
		"processed", len(assets), "succeeded", succeeded, "failed", failed, "bytesFreed", freed)
	return nil
}
