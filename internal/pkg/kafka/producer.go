package kafka

import (
	"Capstone/internal/api/config"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	EventAssetUploaded  = "asset.uploaded"
	EventAssetDeleted   = "asset.deleted"
	EventAssetPermanent = "asset.permanent"
)

// AssetEvent 资产生命周期事件
type AssetEvent struct {
	Event     string    `json:"event"`
	FileID    string    `json:"file_id"`
	AccountID int64     `json:"account_id"`
	FileType  string    `json:"file_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Producer 资产事件生产者。Kafka 未配置时所有发送都是空操作
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer 创建生产者。Brokers 为空时返回空实现
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return &Producer{}, nil
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    cfg.Topic,
	}, nil
}

// Publish 发送事件。失败只记录日志，不影响主流程
func (p *Producer) Publish(event AssetEvent) {
	if p.producer == nil {
		return
	}

	event.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal asset event", "event", event.Event, "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.FileID),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err = p.producer.SendMessage(msg); err != nil {
		log.Error("failed to publish asset event", "event", event.Event, "fileID", event.FileID, "err", err)
	}
}

// Close 关闭底层生产者
func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
