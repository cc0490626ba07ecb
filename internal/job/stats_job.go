package job

import (
	"Capstone/internal/service"
	"context"
	log "log/slog"
)

// StatsSnapshotJob 周期性刷新全局统计快照
type StatsSnapshotJob struct {
	statsSvc service.StatsService
}

func NewStatsSnapshotJob(statsSvc service.StatsService) *StatsSnapshotJob {
	return &StatsSnapshotJob{
		statsSvc: statsSvc,
	}
}

func (s *StatsSnapshotJob) ID() string {
	return "stats_snapshot"
}

func (s *StatsSnapshotJob) Run(ctx context.Context) error {
	snapshot, err := s.statsSvc.Snapshot(ctx)
	if err != nil {
		return err
	}

	log.Info("stats snapshot captured",
		"totalAssets", snapshot.Registry.TotalCount,
		"activeAssets", snapshot.Registry.ActiveCount,
		"activeBytes", snapshot.Registry.ActiveBytes,
		"diskFiles", snapshot.Disk.TotalFiles)
	return nil
}
