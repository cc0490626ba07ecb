package model

import (
	"time"
)

// JobSchedule 后台任务的触发状态，重启后用于判定错过的触发
type JobSchedule struct {
	JobID     string    `gorm:"type:varchar(64);primaryKey" json:"job_id"`
	NextRun   time.Time `gorm:"not null" json:"next_run"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (JobSchedule) TableName() string {
	return "job_schedules"
}
