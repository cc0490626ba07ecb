package repository

import (
	"Capstone/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

// AuditRepo 校验与清理两条追加型审计流水
type AuditRepo interface {
	AddValidationRecord(ctx context.Context, record *model.ValidationRecord) error
	AddCleanupRecord(ctx context.Context, record *model.CleanupRecord) error
	ValidationHistory(ctx context.Context, assetID string) ([]*model.ValidationRecord, error)
	CleanupHistory(ctx context.Context, assetID string) ([]*model.CleanupRecord, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

type AuditRepoImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepo {
	return &AuditRepoImpl{
		db: db,
	}
}

func (s AuditRepoImpl) AddValidationRecord(ctx context.Context, record *model.ValidationRecord) error {
	if record.CheckedAt.IsZero() {
		record.CheckedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s AuditRepoImpl) AddCleanupRecord(ctx context.Context, record *model.CleanupRecord) error {
	if record.PerformedAt.IsZero() {
		record.PerformedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(record).Error
}

func (s AuditRepoImpl) ValidationHistory(ctx context.Context, assetID string) ([]*model.ValidationRecord, error) {
	var records []*model.ValidationRecord
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("checked_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s AuditRepoImpl) CleanupHistory(ctx context.Context, assetID string) ([]*model.CleanupRecord, error) {
	var records []*model.CleanupRecord
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("performed_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PurgeBefore 删除界限之前的审计记录，控制流水表体积
func (s AuditRepoImpl) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	result := s.db.WithContext(ctx).Delete(&model.ValidationRecord{}, "checked_at < ?", before)
	if result.Error != nil {
		return 0, result.Error
	}
	total += result.RowsAffected

	result = s.db.WithContext(ctx).Delete(&model.CleanupRecord{}, "performed_at < ?", before)
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	return total, nil
}
