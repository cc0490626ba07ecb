package service

import (
	"Capstone/internal/model"
	"Capstone/internal/pkg/filecheck"
	"Capstone/internal/pkg/hashutil"
	"Capstone/internal/pkg/mediaprobe"
	"Capstone/internal/pkg/minio"
	"Capstone/internal/pkg/scan"
	"Capstone/internal/pkg/storage"
	"Capstone/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// UploadRequest 一次准入请求
type UploadRequest struct {
	Content       []byte
	FileName      string
	AccountID     int64
	UploaderIP    string
	UploadSession string
}

// UploadResult 准入结果，Deduplicated 表示命中已有资产
type UploadResult struct {
	Asset        *model.MediaAsset
	Deduplicated bool
}

// ListResult 分页查询结果与占用统计
type ListResult struct {
	Assets  []*model.MediaAsset
	Total   int64
	Summary *repository.StorageSummary
}

// CleanupOutcome 一次批量清理的汇总
type CleanupOutcome struct {
	Processed  int   `json:"processed"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	BytesFreed int64 `json:"bytes_freed"`
}

type MediaService interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Get(ctx context.Context, id string) (*model.MediaAsset, error)
	Download(ctx context.Context, id string) ([]byte, string, error)
	Associate(ctx context.Context, id string, groupID int64) (*model.MediaAsset, error)
	Delete(ctx context.Context, id string, accountID int64) error
	List(ctx context.Context, accountID int64, filter string, page, pageSize int) (*ListResult, error)
	MarkPermanent(ctx context.Context, id string) (*model.MediaAsset, error)
	CleanupByGroup(ctx context.Context, groupID int64) (*CleanupOutcome, error)
	Revalidate(ctx context.Context, id string) (*model.MediaAsset, error)

	// RunChecks 对单个资产执行完整校验链，供后台任务复用
	RunChecks(ctx context.Context, asset *model.MediaAsset) (bool, error)
	// CleanupAsset 对单个资产执行物理删除和状态流转，供后台任务复用
	CleanupAsset(ctx context.Context, asset *model.MediaAsset, trigger string) (int64, error)
}

type MediaServiceImpl struct {
	mediaRepo repository.MediaRepo
	auditRepo repository.AuditRepo

	validator *filecheck.Validator
	scanner   *scan.Scanner
	hasher    *hashutil.Hasher
	store     *storage.Store
	probe     *mediaprobe.Probe
	notify    NotifyService

	cleanupDelay time.Duration
}

func NewMediaService(
	mediaRepo repository.MediaRepo,
	auditRepo repository.AuditRepo,
	validator *filecheck.Validator,
	scanner *scan.Scanner,
	hasher *hashutil.Hasher,
	store *storage.Store,
	probe *mediaprobe.Probe,
	notify NotifyService,
	cleanupDelay time.Duration,
) MediaService {
	return &MediaServiceImpl{
		mediaRepo:    mediaRepo,
		auditRepo:    auditRepo,
		validator:    validator,
		scanner:      scanner,
		hasher:       hasher,
		store:        store,
		probe:        probe,
		notify:       notify,
		cleanupDelay: cleanupDelay,
	}
}

// Upload 准入流水线：校验、扫描、摘要、去重、落盘、落库
func (s *MediaServiceImpl) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	info, vErr := s.validator.Validate(req.FileName, req.Content)
	if vErr != nil {
		return nil, NewRejectedError(vErr.Phase, vErr.Reason)
	}

	if s.scanner.Enabled() {
		result := s.scanner.Scan(req.Content, info.FileName, info.MimeType)
		if !result.Safe {
			return nil, NewRejectedError("security", result.Summary())
		}
	}

	hash := s.hasher.Sum(req.Content)

	// 去重只在同账号的活跃资产中查找
	existing, err := s.mediaRepo.FindActiveByOwnerAndHash(ctx, req.AccountID, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if existing != nil {
		log.Info("duplicate upload, reuse existing asset",
			"accountID", req.AccountID, "assetID", existing.ID)
		return &UploadResult{Asset: existing, Deduplicated: true}, nil
	}

	meta, rejErr := s.inspect(ctx, info.Kind, req.Content, "")
	if rejErr != nil {
		return nil, rejErr
	}

	written, err := s.store.Write(req.Content, info.FileName, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	asset := &model.MediaAsset{
		ID:             uuid.NewString(),
		AccountID:      req.AccountID,
		OriginalName:   info.FileName,
		StoredName:     written.StoredName,
		StoragePath:    written.Path,
		SizeBytes:      written.Size,
		FileType:       info.Kind,
		MimeType:       info.MimeType,
		Extension:      info.Extension,
		ContentHash:    hash,
		UploaderIP:     req.UploaderIP,
		UploadSession:  req.UploadSession,
		RetentionState: model.RetentionPending,
		Active:         true,
		Validated:      true,
	}
	applyMetadata(asset, meta)

	record := &model.ValidationRecord{
		CheckKind: model.CheckComplete,
		Passed:    true,
		CheckedAt: time.Now(),
		Details:   model.JSONMap{"hash": hash, "mime_type": info.MimeType},
	}

	if err = s.mediaRepo.Create(ctx, asset, record); err != nil {
		// 落库失败补偿删除已写入的文件，失败的补偿留给孤儿清理兜底
		if _, delErr := s.store.Delete(written.Path); delErr != nil {
			log.Error("compensating delete failed, orphan left on disk",
				"path", written.Path, "err", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	s.mirrorUpload(ctx, asset, req.Content)
	s.notify.AssetUploaded(ctx, asset)

	log.Info("asset admitted", "assetID", asset.ID, "accountID", req.AccountID,
		"kind", asset.FileType, "size", asset.SizeBytes)
	return &UploadResult{Asset: asset}, nil
}

func (s *MediaServiceImpl) Get(ctx context.Context, id string) (*model.MediaAsset, error) {
	asset, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}

// Download 读取活跃资产的内容，已清理的返回 Gone
func (s *MediaServiceImpl) Download(ctx context.Context, id string) ([]byte, string, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !asset.Active {
		return nil, "", ErrAssetGone
	}

	content, err := s.store.Read(asset.StoragePath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return content, asset.MimeType, nil
}

// Associate 绑定分组并按配置延迟排期清理
func (s *MediaServiceImpl) Associate(ctx context.Context, id string, groupID int64) (*model.MediaAsset, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.Active {
		return nil, ErrAssetGone
	}
	if asset.RetentionState == model.RetentionPermanent {
		return nil, ErrAssetPermanent
	}

	asset.Associate(groupID, s.cleanupDelay)
	if err = s.mediaRepo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	log.Info("asset associated", "assetID", id, "groupID", groupID,
		"scheduledAt", asset.RetentionScheduledAt)
	return asset, nil
}

// Delete 手动删除，仅允许属主操作
func (s *MediaServiceImpl) Delete(ctx context.Context, id string, accountID int64) error {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if asset.AccountID != accountID {
		return ErrForbidden
	}
	if !asset.Active {
		// 已是目标状态，幂等返回
		return nil
	}

	if _, err = s.CleanupAsset(ctx, asset, model.TriggerManual); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return nil
}

func (s *MediaServiceImpl) List(ctx context.Context, accountID int64, filter string, page, pageSize int) (*ListResult, error) {
	assets, total, err := s.mediaRepo.ListByAccount(ctx, accountID, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	summary, err := s.mediaRepo.SummaryByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	return &ListResult{Assets: assets, Total: total, Summary: summary}, nil
}

// MarkPermanent 永久保留，退出一切清理排期
func (s *MediaServiceImpl) MarkPermanent(ctx context.Context, id string) (*model.MediaAsset, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.Active {
		return nil, ErrAssetGone
	}

	asset.MarkPermanent()
	if err = s.mediaRepo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	log.Info("asset marked permanent", "assetID", id)
	return asset, nil
}

// CleanupByGroup 立即清理该分组下全部待清理资产，逐项隔离失败
func (s *MediaServiceImpl) CleanupByGroup(ctx context.Context, groupID int64) (*CleanupOutcome, error) {
	assets, err := s.mediaRepo.PendingByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	outcome := &CleanupOutcome{}
	for _, asset := range assets {
		outcome.Processed++
		freed, cleanupErr := s.CleanupAsset(ctx, asset, model.TriggerAssociationPublished)
		if cleanupErr != nil {
			outcome.Failed++
			log.Error("group cleanup item failed", "assetID", asset.ID, "groupID", groupID, "err", cleanupErr)
			continue
		}
		outcome.Succeeded++
		outcome.BytesFreed += freed
	}

	log.Info("group cleanup finished", "groupID", groupID,
		"processed", outcome.Processed, "failed", outcome.Failed)
	return outcome, nil
}

// Revalidate 按需重新校验单个资产
func (s *MediaServiceImpl) Revalidate(ctx context.Context, id string) (*model.MediaAsset, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err = s.RunChecks(ctx, asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return asset, nil
}

// RunChecks 校验链：存在性 → 完整性 → 内容结构 → 安全扫描
// 任一环失败记录失败原因并停止，全部通过置 validated
// 返回值表示是否通过，error 只代表仓储层故障
func (s *MediaServiceImpl) RunChecks(ctx context.Context, asset *model.MediaAsset) (bool, error) {
	fail := func(kind, reason string) (bool, error) {
		asset.Validated = false
		asset.ValidationError = reason
		if err := s.mediaRepo.Update(ctx, asset); err != nil {
			return false, err
		}
		return false, s.auditRepo.AddValidationRecord(ctx, &model.ValidationRecord{
			AssetID:      asset.ID,
			CheckKind:    kind,
			Passed:       false,
			ErrorMessage: reason,
			CheckedAt:    time.Now(),
		})
	}

	// 存在性
	stat := s.store.Stat(asset.StoragePath)
	if !stat.Exists {
		return fail(model.CheckExistence, "物理文件不存在")
	}
	if !stat.Readable {
		return fail(model.CheckExistence, "物理文件不可读")
	}

	content, err := s.store.Read(asset.StoragePath)
	if err != nil {
		return fail(model.CheckExistence, "物理文件读取失败")
	}

	// 完整性：重新计算摘要必须与登记值一致。不一致说明内容被改动，只标记不删除
	if !s.hasher.Verify(content, asset.ContentHash) {
		return fail(model.CheckIntegrity, "内容摘要与登记值不一致")
	}

	// 内容结构
	meta, rejErr := s.inspect(ctx, asset.FileType, content, asset.StoragePath)
	if rejErr != nil {
		return fail(model.CheckContent, rejErr.Reason)
	}
	applyMetadata(asset, meta)

	// 安全扫描
	if s.scanner.Enabled() {
		result := s.scanner.Scan(content, asset.OriginalName, asset.MimeType)
		if !result.Safe {
			return fail(model.CheckSecurity, result.Summary())
		}
	}

	asset.Validated = true
	asset.ValidationError = ""
	if err = s.mediaRepo.Update(ctx, asset); err != nil {
		return false, err
	}

	err = s.auditRepo.AddValidationRecord(ctx, &model.ValidationRecord{
		AssetID:   asset.ID,
		CheckKind: model.CheckComplete,
		Passed:    true,
		CheckedAt: time.Now(),
	})
	return true, err
}

// CleanupAsset 物理删除加状态流转。删除失败保持 pending 等待下轮
func (s *MediaServiceImpl) CleanupAsset(ctx context.Context, asset *model.MediaAsset, trigger string) (int64, error) {
	deleted, err := s.store.Delete(asset.StoragePath)
	if err != nil {
		asset.MarkCleanupFailed(err.Error())
		if updateErr := s.mediaRepo.Update(ctx, asset); updateErr != nil {
			log.Error("failed to persist cleanup error", "assetID", asset.ID, "err", updateErr)
		}
		if auditErr := s.auditRepo.AddCleanupRecord(ctx, &model.CleanupRecord{
			AssetID:      asset.ID,
			Trigger:      trigger,
			Succeeded:    false,
			ErrorMessage: err.Error(),
			PerformedAt:  time.Now(),
		}); auditErr != nil {
			log.Error("failed to record cleanup failure", "assetID", asset.ID, "err", auditErr)
		}
		return 0, err
	}

	asset.MarkCleanupCompleted()
	if err = s.mediaRepo.Update(ctx, asset); err != nil {
		return 0, err
	}

	if err = s.auditRepo.AddCleanupRecord(ctx, &model.CleanupRecord{
		AssetID:     asset.ID,
		Trigger:     trigger,
		Succeeded:   true,
		BytesFreed:  deleted.FreedBytes,
		PerformedAt: time.Now(),
	}); err != nil {
		return deleted.FreedBytes, err
	}

	s.mirrorRemove(ctx, asset)
	s.notify.AssetDeleted(ctx, asset)

	log.Info("asset cleaned up", "assetID", asset.ID, "trigger", trigger,
		"bytesFreed", deleted.FreedBytes)
	return deleted.FreedBytes, nil
}

// inspect 按类型做结构解析，图片顺带产出宽高
func (s *MediaServiceImpl) inspect(ctx context.Context, kind string, content []byte, path string) (*mediaprobe.Metadata, *RejectedError) {
	switch kind {
	case filecheck.KindImage:
		meta, err := s.probe.InspectImage(content)
		if err != nil {
			return nil, NewRejectedError("content", "图片内容无法解析")
		}
		return meta, nil
	case filecheck.KindVideo:
		var full string
		if path != "" {
			full = filepath.Join(s.store.Root(), path)
		}
		meta, err := s.probe.InspectVideo(ctx, content, full)
		if err != nil {
			return nil, NewRejectedError("content", "视频内容无法解析")
		}
		return meta, nil
	}
	return &mediaprobe.Metadata{}, nil
}

// mirrorUpload 尽力而为地把图片缩略图镜像到对象存储
func (s *MediaServiceImpl) mirrorUpload(ctx context.Context, asset *model.MediaAsset, content []byte) {
	if !minio.Enabled() || asset.FileType != filecheck.KindImage {
		return
	}

	thumb, err := mediaprobe.MakeThumbnail(content)
	if err != nil {
		log.Warn("thumbnail generation failed", "assetID", asset.ID, "err", err)
		return
	}

	objectName := "thumb/" + asset.StoredName
	if _, err = minio.UploadObject(ctx, objectName, thumb, "image/jpeg"); err != nil {
		log.Warn("thumbnail mirror upload failed", "assetID", asset.ID, "err", err)
	}
}

func (s *MediaServiceImpl) mirrorRemove(ctx context.Context, asset *model.MediaAsset) {
	if !minio.Enabled() || asset.FileType != filecheck.KindImage {
		return
	}
	if err := minio.RemoveObject(ctx, "thumb/"+asset.StoredName); err != nil {
		log.Warn("thumbnail mirror remove failed", "assetID", asset.ID, "err", err)
	}
}

func applyMetadata(asset *model.MediaAsset, meta *mediaprobe.Metadata) {
	if meta == nil {
		return
	}
	if meta.Width > 0 {
		w := meta.Width
		asset.Width = &w
	}
	if meta.Height > 0 {
		h := meta.Height
		asset.Height = &h
	}
	if meta.Duration > 0 {
		d := meta.Duration
		asset.DurationSeconds = &d
	}
}
