package service

import (
	"Capstone/internal/api/config"
	"Capstone/internal/model"
	"Capstone/internal/pkg/kafka"
	"context"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// NotifyService 提交后的下游通知，尽力而为，失败不回滚主流程
type NotifyService interface {
	AssetUploaded(ctx context.Context, asset *model.MediaAsset)
	AssetDeleted(ctx context.Context, asset *model.MediaAsset)
}

type NotifyServiceImpl struct {
	client   *resty.Client
	url      string
	producer *kafka.Producer
}

func NewNotifyService(cfg config.NotifyConfig, producer *kafka.Producer) NotifyService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")
	if cfg.ServiceToken != "" {
		client.SetAuthToken(cfg.ServiceToken)
	}

	return &NotifyServiceImpl{
		client:   client,
		url:      cfg.URL,
		producer: producer,
	}
}

type notifyPayload struct {
	Event     string `json:"event"`
	FileID    string `json:"file_id"`
	AccountID int64  `json:"account_id"`
	FileType  string `json:"file_type"`
	SizeBytes int64  `json:"size_bytes"`
}

func (s *NotifyServiceImpl) AssetUploaded(ctx context.Context, asset *model.MediaAsset) {
	s.send(ctx, kafka.EventAssetUploaded, asset)
}

func (s *NotifyServiceImpl) AssetDeleted(ctx context.Context, asset *model.MediaAsset) {
	s.send(ctx, kafka.EventAssetDeleted, asset)
}

func (s *NotifyServiceImpl) send(ctx context.Context, event string, asset *model.MediaAsset) {
	if s.producer != nil {
		s.producer.Publish(kafka.AssetEvent{
			Event:     event,
			FileID:    asset.ID,
			AccountID: asset.AccountID,
			FileType:  asset.FileType,
		})
	}

	if s.url == "" {
		return
	}

	payload := notifyPayload{
		Event:     event,
		FileID:    asset.ID,
		AccountID: asset.AccountID,
		FileType:  asset.FileType,
		SizeBytes: asset.SizeBytes,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		log.Warn("downstream notify failed", "event", event, "fileID", asset.ID, "err", err)
		return
	}
	if resp.IsError() {
		log.Warn("downstream notify rejected", "event", event, "fileID", asset.ID, "status", resp.StatusCode())
	}
}

// noopNotifyService 测试和通知未配置时使用
type noopNotifyService struct{}

// NewNoopNotifyService 返回不做任何事情的通知实现
func NewNoopNotifyService() NotifyService {
	return noopNotifyService{}
}

func (noopNotifyService) AssetUploaded(ctx context.Context, asset *model.MediaAsset) {}
func (noopNotifyService) AssetDeleted(ctx context.Context, asset *model.MediaAsset)  {}
