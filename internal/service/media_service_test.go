package service

import (
	"Capstone/internal/model"
	"Capstone/internal/pkg/filecheck"
	"Capstone/internal/pkg/hashutil"
	"Capstone/internal/pkg/mediaprobe"
	"Capstone/internal/pkg/scan"
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	svc       MediaService
	mediaRepo repository.MediaRepo
	auditRepo repository.AuditRepo
	store     *storage.Store
	hasher    *hashutil.Hasher
}

func newTestEnv(t *testing.T) *testEnv {
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

	svc := NewMediaService(
		mediaRepo,
		auditRepo,
		filecheck.NewValidator(
			[]string{"jpg", "jpeg", "png", "gif"},
			[]string{"mp4", "mov", "avi"},
			10*1024*1024,
			50*1024*1024,
		),
		scan.NewScanner(true),
		hasher,
		store,
		mediaprobe.NewProbe(""),
		NewNoopNotifyService(),
		5*time.Minute,
	)

	return &testEnv{
		svc:       svc,
		mediaRepo: mediaRepo,
		auditRepo: auditRepo,
		store:     store,
		hasher:    hasher,
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := imaging.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), imaging.JPEG)
	require.NoError(t, err)
	return buf.Bytes()
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestUploadExecutableRejectedBeforeStorage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 图片扩展名配可执行文件头
	content := append([]byte("MZ"), make([]byte, 128)...)
	_, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   content,
		FileName:  "innocent.jpg",
		AccountID: 42,
	})

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)

	// 拒绝发生在落盘之前
	assert.Equal(t, 0, countFiles(t, env.store.Root()))
	assets, total, listErr := env.mediaRepo.ListByAccount(ctx, 42, "all", 1, 10)
	require.NoError(t, listErr)
	assert.Zero(t, total)
	assert.Empty(t, assets)
}

func TestUploadAndDedup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	content := jpegBytes(t, 1920, 1080)

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   content,
		FileName:  "banner.jpg",
		AccountID: 42,
	})
	require.NoError(t, err)
	require.False(t, result.Deduplicated)

	asset := result.Asset
	assert.Equal(t, "image", asset.FileType)
	assert.True(t, asset.Validated)
	assert.True(t, asset.Active)
	assert.Equal(t, model.RetentionPending, asset.RetentionState)
	require.NotNil(t, asset.Width)
	assert.Equal(t, 1920, *asset.Width)
	require.NotNil(t, asset.Height)
	assert.Equal(t, 1080, *asset.Height)

	// 登记的存储路径相对根目录，换根目录后仍可定位
	assert.False(t, filepath.IsAbs(asset.StoragePath))

	// 落盘内容的摘要必须与登记值一致
	stored, err := env.store.Read(asset.StoragePath)
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify(stored, asset.ContentHash))

	// 同账号重复上传命中已有资产，不新写文件
	again, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   content,
		FileName:  "banner_copy.jpg",
		AccountID: 42,
	})
	require.NoError(t, err)
	assert.True(t, again.Deduplicated)
	assert.Equal(t, asset.ID, again.Asset.ID)
	assert.Equal(t, 1, countFiles(t, env.store.Root()))

	// 其他账号上传相同内容得到独立资产
	other, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   content,
		FileName:  "banner.jpg",
		AccountID: 7,
	})
	require.NoError(t, err)
	assert.False(t, other.Deduplicated)
	assert.NotEqual(t, asset.ID, other.Asset.ID)
	assert.Equal(t, asset.ContentHash, other.Asset.ContentHash)
}

func TestAssociateSchedulesRetention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)

	before := time.Now()
	asset, err := env.svc.Associate(ctx, result.Asset.ID, 7)
	require.NoError(t, err)

	require.NotNil(t, asset.GroupID)
	assert.Equal(t, int64(7), *asset.GroupID)
	require.NotNil(t, asset.RetentionScheduledAt)
	assert.WithinDuration(t, before.Add(5*time.Minute), *asset.RetentionScheduledAt, 2*time.Second)
	assert.Equal(t, model.RetentionPending, asset.RetentionState)
}

func TestCleanupAssetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)
	asset := result.Asset
	size := asset.SizeBytes

	_, err = env.svc.Associate(ctx, asset.ID, 7)
	require.NoError(t, err)

	reloaded, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	freed, err := env.svc.CleanupAsset(ctx, reloaded, model.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, size, freed)

	final, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.False(t, final.Active)
	assert.Equal(t, model.RetentionScheduledRemoved, final.RetentionState)
	assert.NotNil(t, final.RetentionCompletedAt)
	assert.Equal(t, 0, countFiles(t, env.store.Root()))

	records, err := env.auditRepo.CleanupHistory(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Succeeded)
	assert.Equal(t, size, records[0].BytesFreed)
}

func TestManualDeleteOwnershipAndIdempotency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)

	err = env.svc.Delete(ctx, result.Asset.ID, 99)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, env.svc.Delete(ctx, result.Asset.ID, 1))
	// 重复删除是幂等的
	require.NoError(t, env.svc.Delete(ctx, result.Asset.ID, 1))

	_, _, err = env.svc.Download(ctx, result.Asset.ID)
	assert.ErrorIs(t, err, ErrAssetGone)
}

func TestMarkPermanentBlocksAssociation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)

	asset, err := env.svc.MarkPermanent(ctx, result.Asset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RetentionPermanent, asset.RetentionState)
	assert.Nil(t, asset.RetentionScheduledAt)

	_, err = env.svc.Associate(ctx, result.Asset.ID, 7)
	assert.ErrorIs(t, err, ErrAssetPermanent)
}

func TestCleanupByGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		result, err := env.svc.Upload(ctx, &UploadRequest{
			Content:   jpegBytes(t, 32+i, 32),
			FileName:  "a.jpg",
			AccountID: 1,
		})
		require.NoError(t, err)
		_, err = env.svc.Associate(ctx, result.Asset.ID, 7)
		require.NoError(t, err)
		ids = append(ids, result.Asset.ID)
	}

	outcome, err := env.svc.CleanupByGroup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Processed)
	assert.Equal(t, 2, outcome.Succeeded)
	assert.Zero(t, outcome.Failed)

	for _, id := range ids {
		asset, getErr := env.mediaRepo.GetByID(ctx, id)
		require.NoError(t, getErr)
		assert.False(t, asset.Active)
	}
}

func TestRunChecksDetectsCorruption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)
	asset := result.Asset

	// 篡改落盘内容制造摘要不一致
	full := filepath.Join(env.store.Root(), asset.StoragePath)
	require.NoError(t, os.WriteFile(full, jpegBytes(t, 8, 8), 0o644))

	passed, err := env.svc.RunChecks(ctx, asset)
	require.NoError(t, err)
	assert.False(t, passed)

	reloaded, err := env.mediaRepo.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Validated)
	assert.NotEmpty(t, reloaded.ValidationError)
	// 损坏只标记不删除
	assert.True(t, reloaded.Active)

	records, err := env.auditRepo.ValidationHistory(ctx, asset.ID)
	require.NoError(t, err)
	last := records[len(records)-1]
	assert.Equal(t, model.CheckIntegrity, last.CheckKind)
	assert.False(t, last.Passed)
}

func TestRunChecksMissingFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Upload(ctx, &UploadRequest{
		Content:   jpegBytes(t, 64, 64),
		FileName:  "a.jpg",
		AccountID: 1,
	})
	require.NoError(t, err)
	asset := result.Asset

	_, err = env.store.Delete(asset.StoragePath)
	require.NoError(t, err)

	passed, err := env.svc.RunChecks(ctx, asset)
	require.NoError(t, err)
	assert.False(t, passed)

	records, err := env.auditRepo.ValidationHistory(ctx, asset.ID)
	require.NoError(t, err)
	last := records[len(records)-1]
	assert.Equal(t, model.CheckExistence, last.CheckKind)
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Get(context.Background(), "no-such-id")
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}
