package job

import (
	"Capstone/internal/model"
	"Capstone/internal/pkg/filecheck"
	"Capstone/internal/pkg/hashutil"
	"Capstone/internal/pkg/mediaprobe"
	"Capstone/internal/pkg/scan"
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"Capstone/internal/service"
	"bytes"
	"context"
	"image"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type jobEnv struct {
	mediaRepo repository.MediaRepo
	auditRepo repository.AuditRepo
	mediaSvc  service.MediaService
	store     *storage.Store
}

func newJobEnv(t *testing.T) *jobEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.MediaAsset{},
		&model.ValidationRecord{},
		&model.CleanupRecord{},
	))

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	hasher, err := hashutil.NewHasher("sha256")
	require.NoError(t, err)

	mediaRepo := repository.NewMediaRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	mediaSvc := service.NewMediaService(
		mediaRepo,
		auditRepo,
		filecheck.NewValidator(
			[]string{"jpg", "jpeg", "png"},
			[]string{"mp4"},
			10*1024*1024,
			50*1024*1024,
		),
		scan.NewScanner(true),
		hasher,
		store,
		mediaprobe.NewProbe(""),
		service.NewNoopNotifyService(),
		5*time.Minute,
	)

	return &jobEnv{
		mediaRepo: mediaRepo,
		auditRepo: auditRepo,
		mediaSvc:  mediaSvc,
		store:     store,
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := imaging.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), imaging.JPEG)
	require.NoError(t, err)
	return buf.Bytes()
}

func (e *jobEnv) upload(t *testing.T, accountID int64, content []byte) *model.MediaAsset {
	t.Helper()
	result, err := e.mediaSvc.Upload(context.Background(), &service.UploadRequest{
		Content:   content,
		FileName:  "fixture.jpg",
		AccountID: accountID,
	})
	require.NoError(t, err)
	return result.Asset
}

func TestCleanupScheduledJobHonorsDueTime(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	due := env.upload(t, 1, jpegBytes(t, 32, 32))
	past := time.Now().Add(-time.Minute)
	due.RetentionScheduledAt = &past
	require.NoError(t, env.mediaRepo.Update(ctx, due))

	future := env.upload(t, 1, jpegBytes(t, 48, 48))
	later := time.Now().Add(time.Hour)
	future.RetentionScheduledAt = &later
	require.NoError(t, env.mediaRepo.Update(ctx, future))

	job := NewCleanupScheduledJob(env.mediaRepo, env.mediaSvc, 100)
	require.NoError(t, job.Run(ctx))

	cleaned, err := env.mediaRepo.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.False(t, cleaned.Active)
	assert.Equal(t, model.RetentionScheduledRemoved, cleaned.RetentionState)

	// 未到期的资产不受影响
	untouched, err := env.mediaRepo.GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.True(t, untouched.Active)
	assert.Equal(t, model.RetentionPending, untouched.RetentionState)
	assert.True(t, env.store.Stat(untouched.StoragePath).Exists)
}

func TestCleanupScheduledJobBatchBound(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		asset := env.upload(t, 1, jpegBytes(t, 16+i, 16))
		asset.RetentionScheduledAt = &past
		require.NoError(t, env.mediaRepo.Update(ctx, asset))
	}

	job := NewCleanupScheduledJob(env.mediaRepo, env.mediaSvc, 2)
	require.NoError(t, job.Run(ctx))

	remaining, err := env.mediaRepo.DueForCleanup(ctx, time.Now(), 100)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "backlog rolls to next tick")
}

func TestOrphanReconcileJob(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	registered := env.upload(t, 1, jpegBytes(t, 32, 32))

	orphan, err := env.store.Write([]byte("stray bytes on disk"), "stray.jpg", 9)
	require.NoError(t, err)

	job := NewOrphanReconcileJob(env.mediaRepo, env.store)
	require.NoError(t, job.Run(ctx))

	assert.False(t, env.store.Stat(orphan.Path).Exists, "orphan must be removed")
	assert.True(t, env.store.Stat(registered.StoragePath).Exists, "registered file must survive")
}

func TestOldInactivePurgeJob(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	old := env.upload(t, 1, jpegBytes(t, 32, 32))
	_, err := env.mediaSvc.CleanupAsset(ctx, old, model.TriggerScheduled)
	require.NoError(t, err)
	completed := time.Now().AddDate(0, 0, -90)
	old.RetentionCompletedAt = &completed
	require.NoError(t, env.mediaRepo.Update(ctx, old))

	recent := env.upload(t, 1, jpegBytes(t, 48, 48))
	_, err = env.mediaSvc.CleanupAsset(ctx, recent, model.TriggerScheduled)
	require.NoError(t, err)

	job := NewOldInactivePurgeJob(env.mediaRepo, 30, 100)
	require.NoError(t, job.Run(ctx))

	gone, err := env.mediaRepo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "old inactive row must be hard-deleted")

	kept, err := env.mediaRepo.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "recently cleaned row stays within the window")

	// 级联删除审计记录
	records, err := env.auditRepo.CleanupHistory(ctx, old.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestValidatePendingJob(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	asset := env.upload(t, 1, jpegBytes(t, 32, 32))
	asset.Validated = false
	require.NoError(t, env.mediaRepo.Update(ctx, asset))

	job := NewValidatePendingJob(env.mediaRepo, env.mediaSvc, 100)
	require.NoError(t, job.Run(ctx))

	validated, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.True(t, validated.Validated)
	assert.Empty(t, validated.ValidationError)
}

func TestRevalidateFailedJobRecovers(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	asset := env.upload(t, 1, jpegBytes(t, 32, 32))
	asset.Validated = false
	asset.ValidationError = "物理文件不存在"
	require.NoError(t, env.mediaRepo.Update(ctx, asset))

	// 普通待校验任务不碰有失败记录的资产
	pending := NewValidatePendingJob(env.mediaRepo, env.mediaSvc, 100)
	require.NoError(t, pending.Run(ctx))
	unchanged, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.Validated)

	retry := NewRevalidateFailedJob(env.mediaRepo, env.mediaSvc, 100)
	require.NoError(t, retry.Run(ctx))

	recovered, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.True(t, recovered.Validated)
	assert.Empty(t, recovered.ValidationError)
}

func TestAuditPurgeJob(t *testing.T) {
	env := newJobEnv(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, env.auditRepo.AddValidationRecord(ctx, &model.ValidationRecord{
		AssetID: "x", CheckKind: model.CheckComplete, Passed: true, CheckedAt: old,
	}))
	require.NoError(t, env.auditRepo.AddValidationRecord(ctx, &model.ValidationRecord{
		AssetID: "x", CheckKind: model.CheckComplete, Passed: true, CheckedAt: time.Now(),
	}))

	job := NewAuditPurgeJob(env.auditRepo, 30)
	require.NoError(t, job.Run(ctx))

	records, err := env.auditRepo.ValidationHistory(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
