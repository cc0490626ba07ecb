package repository

import (
	"Capstone/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StorageSummary 按账号聚合的占用统计
type StorageSummary struct {
	TotalCount    int64 `json:"total_count"`
	ActiveCount   int64 `json:"active_count"`
	InactiveCount int64 `json:"inactive_count"`
	TotalBytes    int64 `json:"total_bytes"`
	ActiveBytes   int64 `json:"active_bytes"`
}

// GlobalSummary 全局统计，供快照任务使用
type GlobalSummary struct {
	TotalCount     int64 `json:"total_count"`
	ActiveCount    int64 `json:"active_count"`
	ActiveBytes    int64 `json:"active_bytes"`
	PendingCleanup int64 `json:"pending_cleanup"`
	Unvalidated    int64 `json:"unvalidated"`
}

type MediaRepo interface {
	Create(ctx context.Context, asset *model.MediaAsset, record *model.ValidationRecord) error
	GetByID(ctx context.Context, id string) (*model.MediaAsset, error)
	FindActiveByOwnerAndHash(ctx context.Context, accountID int64, hash string) (*model.MediaAsset, error)
	FindByPath(ctx context.Context, path string) (*model.MediaAsset, error)
	Update(ctx context.Context, asset *model.MediaAsset) error
	HardDelete(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, accountID int64, filter string, page, pageSize int) ([]*model.MediaAsset, int64, error)
	ListPaths(ctx context.Context) ([]string, error)

	DueForCleanup(ctx context.Context, now time.Time, limit int) ([]*model.MediaAsset, error)
	PendingByGroup(ctx context.Context, groupID int64) ([]*model.MediaAsset, error)
	PendingValidation(ctx context.Context, limit int) ([]*model.MediaAsset, error)
	FailedValidation(ctx context.Context, limit int) ([]*model.MediaAsset, error)
	OldInactive(ctx context.Context, before time.Time, limit int) ([]*model.MediaAsset, error)

	SummaryByAccount(ctx context.Context, accountID int64) (*StorageSummary, error)
	GlobalSummary(ctx context.Context) (*GlobalSummary, error)
}

type MediaRepoImpl struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepo {
	return &MediaRepoImpl{
		db: db,
	}
}

// Create 资产与首条校验记录在同一事务内落库
func (s MediaRepoImpl) Create(ctx context.Context, asset *model.MediaAsset, record *model.ValidationRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(asset).Error; err != nil {
			return err
		}
		if record != nil {
			record.AssetID = asset.ID
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s MediaRepoImpl) GetByID(ctx context.Context, id string) (*model.MediaAsset, error) {
	var asset model.MediaAsset
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// FindActiveByOwnerAndHash 去重查询，作用域固定为 (账号, 摘要)
func (s MediaRepoImpl) FindActiveByOwnerAndHash(ctx context.Context, accountID int64, hash string) (*model.MediaAsset, error) {
	var asset model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND content_hash = ? AND active = ?", accountID, hash, true).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (s MediaRepoImpl) FindByPath(ctx context.Context, path string) (*model.MediaAsset, error) {
	var asset model.MediaAsset
	err := s.db.WithContext(ctx).Where("storage_path = ?", path).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (s MediaRepoImpl) Update(ctx context.Context, asset *model.MediaAsset) error {
	return s.db.WithContext(ctx).Save(asset).Error
}

// HardDelete 物理删除资产及其全部审计记录
func (s MediaRepoImpl) HardDelete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ValidationRecord{}, "asset_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.CleanupRecord{}, "asset_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.MediaAsset{}, "id = ?", id).Error
	})
}

func (s MediaRepoImpl) ListByAccount(ctx context.Context, accountID int64, filter string, page, pageSize int) ([]*model.MediaAsset, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.MediaAsset{}).Where("account_id = ?", accountID)

	switch filter {
	case "active":
		query = query.Where("active = ?", true)
	case "inactive":
		query = query.Where("active = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []*model.MediaAsset
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&assets).Error
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// ListPaths 全部登记在册的物理路径，孤儿清理时与磁盘比对
func (s MediaRepoImpl) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Model(&model.MediaAsset{}).Pluck("storage_path", &paths).Error
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// DueForCleanup 到期且仍活跃的待清理资产，限量取批
func (s MediaRepoImpl) DueForCleanup(ctx context.Context, now time.Time, limit int) ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("active = ? AND retention_state = ? AND retention_scheduled_at IS NOT NULL AND retention_scheduled_at <= ?",
			true, model.RetentionPending, now).
		Order("retention_scheduled_at ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (s MediaRepoImpl) PendingByGroup(ctx context.Context, groupID int64) ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND active = ? AND retention_state = ?", groupID, true, model.RetentionPending).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// PendingValidation 尚未校验且没有失败记录的资产
func (s MediaRepoImpl) PendingValidation(ctx context.Context, limit int) ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("validated = ? AND active = ? AND (validation_error IS NULL OR validation_error = '')", false, true).
		Order("created_at ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// FailedValidation 曾经校验失败的资产，供低频任务重试
func (s MediaRepoImpl) FailedValidation(ctx context.Context, limit int) ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("validated = ? AND active = ? AND validation_error <> ''", false, true).
		Order("created_at ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// OldInactive 清理完成时间早于界限的非活跃资产
func (s MediaRepoImpl) OldInactive(ctx context.Context, before time.Time, limit int) ([]*model.MediaAsset, error) {
	var assets []*model.MediaAsset
	err := s.db.WithContext(ctx).
		Where("active = ? AND retention_completed_at IS NOT NULL AND retention_completed_at < ?", false, before).
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (s MediaRepoImpl) SummaryByAccount(ctx context.Context, accountID int64) (*StorageSummary, error) {
	var summary StorageSummary
	err := s.db.WithContext(ctx).Model(&model.MediaAsset{}).
		Select(
			"COUNT(*) AS total_count",
			"COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_count",
			"COALESCE(SUM(CASE WHEN active THEN 0 ELSE 1 END), 0) AS inactive_count",
			"COALESCE(SUM(size_bytes), 0) AS total_bytes",
			"COALESCE(SUM(CASE WHEN active THEN size_bytes ELSE 0 END), 0) AS active_bytes",
		).
		Where("account_id = ?", accountID).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s MediaRepoImpl) GlobalSummary(ctx context.Context) (*GlobalSummary, error) {
	var summary GlobalSummary
	err := s.db.WithContext(ctx).Model(&model.MediaAsset{}).
		Select(
			"COUNT(*) AS total_count",
			"COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_count",
			"COALESCE(SUM(CASE WHEN active THEN size_bytes ELSE 0 END), 0) AS active_bytes",
			"COALESCE(SUM(CASE WHEN active AND retention_state = 'pending' AND retention_scheduled_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS pending_cleanup",
			"COALESCE(SUM(CASE WHEN active AND NOT validated THEN 1 ELSE 0 END), 0) AS unvalidated",
		).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
