package wire

import (
	"Capstone/internal/api"
	"Capstone/internal/api/config"
	"Capstone/internal/api/handler"
	"Capstone/internal/job"
	"Capstone/internal/model"
	"Capstone/internal/pkg/filecheck"
	"Capstone/internal/pkg/hashutil"
	"Capstone/internal/pkg/kafka"
	"Capstone/internal/pkg/mediaprobe"
	"Capstone/internal/pkg/scan"
	"Capstone/internal/pkg/scheduler"
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"Capstone/internal/service"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router    *gin.Engine
	DB        *gorm.DB
	Scheduler *scheduler.Scheduler
	Producer  *kafka.Producer
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&model.MediaAsset{},
			&model.ValidationRecord{},
			&model.CleanupRecord{},
			&model.JobSchedule{},
		); err != nil {
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}

	hasher, err := hashutil.NewHasher(cfg.Upload.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage.RootPath)
	if err != nil {
		return nil, err
	}

	validator := filecheck.NewValidator(
		cfg.Upload.AllowedImageExtensions,
		cfg.Upload.AllowedVideoExtensions,
		cfg.Upload.MaxImageSize,
		cfg.Upload.MaxVideoSize,
	)
	scanner := scan.NewScanner(cfg.Security.ScanEnabled)
	probe := mediaprobe.NewProbe(cfg.LibPath.FFprobe)

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	mediaRepo := repository.NewMediaRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobRepo := repository.NewJobScheduleRepository(db)

	notifySvc := service.NewNotifyService(cfg.Notify, producer)
	mediaSvc := service.NewMediaService(
		mediaRepo, auditRepo,
		validator, scanner, hasher, store, probe,
		notifySvc, cfg.CleanupDelay(),
	)
	statsSvc := service.NewStatsService(mediaRepo, store)

	// 调度器组装失败只降级为后台处理停用，不影响对外服务
	sched, err := buildScheduler(cfg, mediaRepo, auditRepo, jobRepo, mediaSvc, statsSvc, store)
	if err != nil {
		log.Error("scheduler setup failed, background processing disabled", "err", err)
		sched = nil
	}

	handlers := &api.HandlersGroup{
		MediaHandler:  handler.NewMediaHandler(mediaSvc, validator),
		AdminHandler:  handler.NewAdminHandler(mediaSvc, statsSvc, sched),
		HealthHandler: handler.NewHealthHandler(db, store),
	}

	return &ApplicationContainer{
		Router:    api.SetupRouter(handlers),
		DB:        db,
		Scheduler: sched,
		Producer:  producer,
	}, nil
}

// buildScheduler 注册全部周期任务
func buildScheduler(
	cfg *config.Config,
	mediaRepo repository.MediaRepo,
	auditRepo repository.AuditRepo,
	jobRepo repository.JobScheduleRepo,
	mediaSvc service.MediaService,
	statsSvc service.StatsService,
	store *storage.Store,
) (*scheduler.Scheduler, error) {
	sched := scheduler.New(
		cfg.Scheduler.Workers,
		time.Duration(cfg.Scheduler.MisfireGraceSeconds)*time.Second,
		jobRepo,
	)

	cadences := cfg.Scheduler.Cadences
	registrations := []struct {
		job     scheduler.Job
		cadence string
	}{
		{job.NewCleanupScheduledJob(mediaRepo, mediaSvc, cfg.Cleanup.BatchSize), cadences.CleanupScheduled},
		{job.NewOrphanReconcileJob(mediaRepo, store), cadences.CleanupOrphans},
		{job.NewOldInactivePurgeJob(mediaRepo, cfg.Cleanup.OldInactiveDays, cfg.Cleanup.BatchSize), cadences.PurgeOldInactive},
		{job.NewValidatePendingJob(mediaRepo, mediaSvc, cfg.Validation.BatchSize), cadences.ValidatePending},
		{job.NewRevalidateFailedJob(mediaRepo, mediaSvc, cfg.Validation.BatchSize), cadences.RevalidateFailed},
		{job.NewStatsSnapshotJob(statsSvc), cadences.StatsSnapshot},
		{job.NewAuditPurgeJob(auditRepo, cfg.Cleanup.AuditRetentionDays), cadences.PurgeAuditRecords},
	}

	for _, r := range registrations {
		if err := sched.Register(r.job, r.cadence); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
