package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("storage.root_path", "./uploads")
	viper.SetDefault("upload.allowed_image_extensions", []string{"jpg", "jpeg", "png", "gif"})
	viper.SetDefault("upload.allowed_video_extensions", []string{"mp4", "mov", "avi"})
	viper.SetDefault("upload.max_image_size", 10*1024*1024)
	viper.SetDefault("upload.max_video_size", 50*1024*1024)
	viper.SetDefault("upload.hash_algorithm", "sha256")
	viper.SetDefault("security.scan_enabled", true)
	viper.SetDefault("cleanup.delay_minutes", 5)
	viper.SetDefault("cleanup.batch_size", 100)
	viper.SetDefault("cleanup.old_inactive_days", 30)
	viper.SetDefault("cleanup.audit_retention_days", 30)
	viper.SetDefault("validation.batch_size", 50)
	viper.SetDefault("scheduler.workers", 4)
	viper.SetDefault("scheduler.misfire_grace_seconds", 300)
	viper.SetDefault("scheduler.cadences.cleanup_scheduled", "@every 5m")
	viper.SetDefault("scheduler.cadences.cleanup_orphans", "@every 6h")
	viper.SetDefault("scheduler.cadences.purge_old_inactive", "0 2 * * *")
	viper.SetDefault("scheduler.cadences.validate_pending", "@every 2m")
	viper.SetDefault("scheduler.cadences.revalidate_failed", "@every 30m")
	viper.SetDefault("scheduler.cadences.stats_snapshot", "@every 1h")
	viper.SetDefault("scheduler.cadences.purge_audit_records", "0 3 * * *")
	viper.SetDefault("notify.timeout_seconds", 5)
}

// CleanupDelay 发布关联后延迟清理的时长
func (c *Config) CleanupDelay() time.Duration {
	return time.Duration(c.Cleanup.DelayMinutes) * time.Minute
}
