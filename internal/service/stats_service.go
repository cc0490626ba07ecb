package service

import (
	"Capstone/internal/pkg/consts"
	"Capstone/internal/pkg/redis"
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// StatsSnapshot 全局统计快照
type StatsSnapshot struct {
	Registry   *repository.GlobalSummary `json:"registry"`
	Disk       *storage.Stats            `json:"disk"`
	CapturedAt time.Time                 `json:"captured_at"`
}

type StatsService interface {
	Snapshot(ctx context.Context) (*StatsSnapshot, error)
	CachedSnapshot(ctx context.Context) (*StatsSnapshot, error)
}

type StatsServiceImpl struct {
	mediaRepo repository.MediaRepo
	store     *storage.Store
	cacheTTL  time.Duration
}

func NewStatsService(mediaRepo repository.MediaRepo, store *storage.Store) StatsService {
	return &StatsServiceImpl{
		mediaRepo: mediaRepo,
		store:     store,
		cacheTTL:  2 * time.Hour,
	}
}

// Snapshot 实时统计登记表和磁盘占用并回写缓存
func (s *StatsServiceImpl) Snapshot(ctx context.Context) (*StatsSnapshot, error) {
	registry, err := s.mediaRepo.GlobalSummary(ctx)
	if err != nil {
		return nil, err
	}

	disk, err := s.store.Stats()
	if err != nil {
		return nil, err
	}

	snapshot := &StatsSnapshot{
		Registry:   registry,
		Disk:       disk,
		CapturedAt: time.Now().UTC(),
	}

	if redis.Rdb != nil {
		payload, marshalErr := json.Marshal(snapshot)
		if marshalErr == nil {
			if cacheErr := redis.SetWithExpiration(ctx, consts.StatsSnapshotKey, payload, s.cacheTTL); cacheErr != nil {
				log.Warn("failed to cache stats snapshot", "err", cacheErr)
			}
		}
	}
	return snapshot, nil
}

// CachedSnapshot 优先读缓存，未命中退化为实时统计
func (s *StatsServiceImpl) CachedSnapshot(ctx context.Context) (*StatsSnapshot, error) {
	if redis.Rdb != nil {
		cached, err := redis.GetValue(ctx, consts.StatsSnapshotKey)
		if err == nil && cached != "" {
			var snapshot StatsSnapshot
			if unmarshalErr := json.Unmarshal([]byte(cached), &snapshot); unmarshalErr == nil {
				return &snapshot, nil
			}
		}
	}
	return s.Snapshot(ctx)
}
