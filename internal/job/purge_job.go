package job

import (
	"Capstone/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// OldInactivePurgeJob 物理删除长期处于非活跃状态的登记行，控制审计数据增长
type OldInactivePurgeJob struct {
	mediaRepo  repository.MediaRepo
	windowDays int
	batchSize  int
}

func NewOldInactivePurgeJob(mediaRepo repository.MediaRepo, windowDays, batchSize int) *OldInactivePurgeJob {
	return &OldInactivePurgeJob{
		mediaRepo:  mediaRepo,
		windowDays: windowDays,
		batchSize:  batchSize,
	}
}

func (s *OldInactivePurgeJob) ID() string {
	return "purge_old_inactive"
}

func (s *OldInactivePurgeJob) Run(ctx context.Context) error {
	before := time.Now().AddDate(0, 0, -s.windowDays)
	assets, err := s.mediaRepo.OldInactive(ctx, before, s.batchSize)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	purged := 0
	for _, asset := range assets {
		if delErr := s.mediaRepo.HardDelete(ctx, asset.ID); delErr != nil {
			log.Error("failed to purge old inactive asset", "assetID", asset.ID, "err", delErr)
			continue
		}
		purged++
	}

	log.Info("old inactive purge finished", "purged", purged, "before", before)
	return nil
}

// AuditPurgeJob 删除超过保留期的校验与清理流水
type AuditPurgeJob struct {
	auditRepo     repository.AuditRepo
	retentionDays int
}

func NewAuditPurgeJob(auditRepo repository.AuditRepo, retentionDays int) *AuditPurgeJob {
	return &AuditPurgeJob{
		auditRepo:     auditRepo,
		retentionDays: retentionDays,
	}
}

func (s *AuditPurgeJob) ID() string {
	return "purge_audit_records"
}

func (s *AuditPurgeJob) Run(ctx context.Context) error {
	before := time.Now().AddDate(0, 0, -s.retentionDays)
	purged, err := s.auditRepo.PurgeBefore(ctx, before)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Info("audit records purged", "count", purged, "before", before)
	}
	return nil
}
