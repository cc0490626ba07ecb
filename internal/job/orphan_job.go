package job

import (
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"context"
	log "log/slog"
)

// OrphanReconcileJob 比对磁盘和登记表，删掉没有归属的物理文件
// 兜住准入补偿删除失败留下的缺口，顺带压缩空目录
type OrphanReconcileJob struct {
	mediaRepo repository.MediaRepo
	store     *storage.Store
}

func NewOrphanReconcileJob(mediaRepo repository.MediaRepo, store *storage.Store) *OrphanReconcileJob {
	return &OrphanReconcileJob{
		mediaRepo: mediaRepo,
		store:     store,
	}
}

func (s *OrphanReconcileJob) ID() string {
	return "cleanup_orphans"
}

func (s *OrphanReconcileJob) Run(ctx context.Context) error {
	paths, err := s.mediaRepo.ListPaths(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		known[p] = struct{}{}
	}

	removed := 0
	var freed int64
	err = s.store.Walk(func(path string, size int64) error {
		if _, ok := known[path]; ok {
			return nil
		}
		if _, delErr := s.store.Delete(path); delErr != nil {
			log.Error("failed to delete orphan file", "path", path, "err", delErr)
			return nil
		}
		removed++
		freed += size
		log.Info("orphan file removed", "path", path, "size", size)
		return nil
	})
	if err != nil {
		return err
	}

	if pruned, compactErr := s.store.CompactEmptyDirs(); compactErr != nil {
		log.Warn("empty directory compaction failed", "err", compactErr)
	} else if pruned > 0 {
		log.Info("empty directories pruned", "count", pruned)
	}

	if removed > 0 {
		log.Info("orphan reconciliation finished", "removed", removed, "bytesFreed", freed)
	}
	return nil
}
