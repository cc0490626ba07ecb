package model

import (
	"time"
)

const (
	TriggerManual               = "manual"
	TriggerAssociationPublished = "association_published"
	TriggerScheduled            = "scheduled"
	TriggerOrphan               = "orphan"
	TriggerOldInactivePurge     = "old_inactive_purge"
)

type CleanupRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetID      string    `gorm:"type:varchar(36);not null;index:idx_cleanup_asset" json:"asset_id"`
	Trigger      string    `gorm:"type:varchar(32);not null" json:"trigger"`
	Succeeded    bool      `gorm:"type:tinyint(1);not null" json:"succeeded"`
	ErrorMessage string    `gorm:"type:varchar(512)" json:"error_message"`
	BytesFreed   int64     `gorm:"not null;default:0" json:"bytes_freed"`
	PerformedAt  time.Time `gorm:"not null;index:idx_cleanup_performed" json:"performed_at"`
}

func (CleanupRecord) TableName() string {
	return "cleanup_records"
}
