package job

import (
	"Capstone/internal/model"
	"Capstone/internal/repository"
	"Capstone/internal/service"
	"context"
	log "log/slog"
)

// runChecksBatch 对一批资产执行校验链，单项仓储故障只记日志
func runChecksBatch(ctx context.Context, mediaSvc service.MediaService, assets []*model.MediaAsset) (passed, failed int) {
	for _, asset := range assets {
		ok, err := mediaSvc.RunChecks(ctx, asset)
		if err != nil {
			log.Error("validation item aborted", "assetID", asset.ID, "err", err)
			continue
		}
		if ok {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// ValidatePendingJob 校验尚未校验过的资产，漏桶式限量取批
type ValidatePendingJob struct {
	mediaRepo repository.MediaRepo
	mediaSvc  service.MediaService
	batchSize int
}

func NewValidatePendingJob(mediaRepo repository.MediaRepo, mediaSvc service.MediaService, batchSize int) *ValidatePendingJob {
	return &ValidatePendingJob{
		mediaRepo: mediaRepo,
		mediaSvc:  mediaSvc,
		batchSize: batchSize,
	}
}

func (s *ValidatePendingJob) ID() string {
	return "validate_pending"
}

func (s *ValidatePendingJob) Run(ctx context.Context) error {
	assets, err := s.mediaRepo.PendingValidation(ctx, s.batchSize)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	passed, failed := runChecksBatch(ctx, s.mediaSvc, assets)
	log.Info("pending validation batch finished",
		"processed", len(assets), "passed", passed, "failed", failed)
	return nil
}

// RevalidateFailedJob 给曾经校验失败的资产第二次机会，半批低频运行
type RevalidateFailedJob struct {
	mediaRepo repository.MediaRepo
	mediaSvc  service.MediaService
	batchSize int
}

func NewRevalidateFailedJob(mediaRepo repository.MediaRepo, mediaSvc service.MediaService, batchSize int) *RevalidateFailedJob {
	half := batchSize / 2
	if half < 1 {
		half = 1
	}
	return &RevalidateFailedJob{
		mediaRepo: mediaRepo,
		mediaSvc:  mediaSvc,
		batchSize: half,
	}
}

func (s *RevalidateFailedJob) ID() string {
	return "revalidate_failed"
}

func (s *RevalidateFailedJob) Run(ctx context.Context) error {
	assets, err := s.mediaRepo.FailedValidation(ctx, s.batchSize)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	passed, failed := runChecksBatch(ctx, s.mediaSvc, assets)
	log.Info("revalidation batch finished",
		"processed", len(assets), "recovered", passed, "stillFailing", failed)
	return nil
}
