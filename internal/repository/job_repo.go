package repository

import (
	"Capstone/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobScheduleRepo 调度器触发状态的持久化实现
type JobScheduleRepo interface {
	LoadNextRun(ctx context.Context, jobID string) (time.Time, bool, error)
	SaveNextRun(ctx context.Context, jobID string, next time.Time) error
}

type JobScheduleRepoImpl struct {
	db *gorm.DB
}

func NewJobScheduleRepository(db *gorm.DB) JobScheduleRepo {
	return &JobScheduleRepoImpl{
		db: db,
	}
}

func (s JobScheduleRepoImpl) LoadNextRun(ctx context.Context, jobID string) (time.Time, bool, error) {
	var schedule model.JobSchedule
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return schedule.NextRun, true, nil
}

func (s JobScheduleRepoImpl) SaveNextRun(ctx context.Context, jobID string, next time.Time) error {
	schedule := model.JobSchedule{
		JobID:   jobID,
		NextRun: next,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"next_run", "updated_at"}),
		}).
		Create(&schedule).Error
}
