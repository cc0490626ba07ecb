package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

const (
	CheckExistence = "existence"
	CheckIntegrity = "integrity"
	CheckContent   = "content"
	CheckSecurity  = "security"
	CheckComplete  = "complete"
)

// JSONMap 以 JSON 文本落库的键值结构
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(data, m)
}

type ValidationRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetID      string    `gorm:"type:varchar(36);not null;index:idx_validation_asset" json:"asset_id"`
	CheckKind    string    `gorm:"type:varchar(32);not null" json:"check_kind"`
	Passed       bool      `gorm:"type:tinyint(1);not null" json:"passed"`
	ErrorMessage string    `gorm:"type:varchar(512)" json:"error_message"`
	Details      JSONMap   `gorm:"type:json" json:"details"`
	CheckedAt    time.Time `gorm:"not null;index:idx_validation_checked" json:"checked_at"`
}

func (ValidationRecord) TableName() string {
	return "validation_records"
}
