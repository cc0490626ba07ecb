package dto

import "time"

// MediaAssetDTO 资产对外视图
type MediaAssetDTO struct {
	ID                   string     `json:"id"`
	AccountID            int64      `json:"account_id"`
	GroupID              *int64     `json:"group_id"`
	OriginalName         string     `json:"original_name"`
	SizeBytes            int64      `json:"size_bytes"`
	FileType             string     `json:"file_type"`
	MimeType             string     `json:"mime_type"`
	Extension            string     `json:"extension"`
	Width                *int       `json:"width,omitempty"`
	Height               *int       `json:"height,omitempty"`
	DurationSeconds      *float64   `json:"duration_seconds,omitempty"`
	ContentHash          string     `json:"content_hash"`
	RetentionState       string     `json:"retention_state"`
	Active               bool       `json:"active"`
	Validated            bool       `json:"validated"`
	CreatedAt            time.Time  `json:"created_at"`
	RetentionScheduledAt *time.Time `json:"retention_scheduled_at,omitempty"`
}

// UploadResultDTO 上传返回，Deduplicated 表示命中已有资产
type UploadResultDTO struct {
	Asset        *MediaAssetDTO `json:"asset"`
	Deduplicated bool           `json:"deduplicated"`
}

// AssociateRequest 绑定分组请求
type AssociateRequest struct {
	GroupID int64 `json:"group_id" binding:"required"`
}

// ListMediaQuery 资产列表查询参数
type ListMediaQuery struct {
	Filter   string `form:"filter,default=active" binding:"omitempty,oneof=active inactive all"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// UploadConfigDTO 上传限制的对外说明
type UploadConfigDTO struct {
	AllowedExtensions map[string][]string `json:"allowed_extensions"`
	MaxImageSize      int64               `json:"max_image_size"`
	MaxVideoSize      int64               `json:"max_video_size"`
	HashAlgorithm     string              `json:"hash_algorithm"`
	ScanEnabled       bool                `json:"scan_enabled"`
}
