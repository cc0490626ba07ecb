package model

import (
	"time"
)

const (
	RetentionPending          = "pending"
	RetentionScheduledRemoved = "scheduled_removed"
	RetentionPermanent        = "permanent"
)

type MediaAsset struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AccountID int64  `gorm:"not null;index:idx_account_hash,priority:1;index:idx_account_id" json:"account_id"`
	GroupID   *int64 `gorm:"index:idx_group_id" json:"group_id"`

	OriginalName string `gorm:"type:varchar(255);not null" json:"original_name"`
	StoredName   string `gorm:"type:varchar(255);not null" json:"stored_name"`
	StoragePath  string `gorm:"type:varchar(512);not null;index:idx_storage_path" json:"storage_path"`
	SizeBytes    int64  `gorm:"not null" json:"size_bytes"`
	FileType     string `gorm:"type:varchar(16);not null" json:"file_type"` // image 或 video
	MimeType     string `gorm:"type:varchar(100);not null" json:"mime_type"`
	Extension    string `gorm:"type:varchar(16);not null" json:"extension"`

	Width           *int     `json:"width"`
	Height          *int     `json:"height"`
	DurationSeconds *float64 `json:"duration_seconds"`

	ContentHash   string `gorm:"type:varchar(128);not null;index:idx_account_hash,priority:2" json:"content_hash"`
	UploaderIP    string `gorm:"type:varchar(45)" json:"uploader_ip"`
	UploadSession string `gorm:"type:varchar(64)" json:"upload_session"`

	RetentionState       string     `gorm:"type:varchar(32);not null;default:pending;index:idx_retention" json:"retention_state"`
	RetentionScheduledAt *time.Time `gorm:"index:idx_retention_due" json:"retention_scheduled_at"`
	RetentionCompletedAt *time.Time `json:"retention_completed_at"`
	RetentionError       string     `gorm:"type:varchar(512)" json:"retention_error"`

	// 不设列默认值，零值 false 才能在 Create 时落库
	Active          bool   `gorm:"type:tinyint(1);not null;index:idx_active" json:"active"`
	Validated       bool   `gorm:"type:tinyint(1);not null;default:0" json:"validated"`
	ValidationError string `gorm:"type:varchar(512)" json:"validation_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ValidationRecords []ValidationRecord `gorm:"foreignKey:AssetID;references:ID" json:"-"`
	CleanupRecords    []CleanupRecord    `gorm:"foreignKey:AssetID;references:ID" json:"-"`
}

func (MediaAsset) TableName() string {
	return "media_assets"
}

// Associate 绑定分组并按延迟时间排期清理
func (m *MediaAsset) Associate(groupID int64, delay time.Duration) {
	scheduledAt := time.Now().Add(delay)
	m.GroupID = &groupID
	m.RetentionScheduledAt = &scheduledAt
}

// CanCleanup 判断该资产在 now 时刻是否满足清理条件
func (m *MediaAsset) CanCleanup(now time.Time) bool {
	return m.Active &&
		m.RetentionState == RetentionPending &&
		m.RetentionScheduledAt != nil &&
		!m.RetentionScheduledAt.After(now)
}

// MarkCleanupCompleted 记录一次成功的清理
func (m *MediaAsset) MarkCleanupCompleted() {
	now := time.Now()
	m.Active = false
	m.RetentionState = RetentionScheduledRemoved
	m.RetentionCompletedAt = &now
	m.RetentionError = ""
}

// MarkCleanupFailed 记录失败原因，状态保持 pending 以便下轮重试
func (m *MediaAsset) MarkCleanupFailed(reason string) {
	m.RetentionError = reason
}

// MarkPermanent 标记为永久保留，退出清理排期
func (m *MediaAsset) MarkPermanent() {
	m.RetentionState = RetentionPermanent
	m.RetentionScheduledAt = nil
	m.RetentionError = ""
}
