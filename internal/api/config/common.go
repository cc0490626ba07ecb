package config

// Config 配置主体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Security   SecurityConfig   `mapstructure:"security"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
	Validation ValidationConfig `mapstructure:"validation"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Logstash   LogstashConfig   `mapstructure:"logstash"`
	LibPath    LibPathConfig    `mapstructure:"lib_path"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig 本地存储配置
type StorageConfig struct {
	RootPath string `mapstructure:"root_path"`
}

// UploadConfig 上传限制配置
type UploadConfig struct {
	AllowedImageExtensions []string `mapstructure:"allowed_image_extensions"`
	AllowedVideoExtensions []string `mapstructure:"allowed_video_extensions"`
	MaxImageSize           int64    `mapstructure:"max_image_size"`
	MaxVideoSize           int64    `mapstructure:"max_video_size"`
	HashAlgorithm          string   `mapstructure:"hash_algorithm"`
}

type SecurityConfig struct {
	ScanEnabled bool   `mapstructure:"scan_enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

// CleanupConfig 清理任务配置
type CleanupConfig struct {
	DelayMinutes       int `mapstructure:"delay_minutes"`
	BatchSize          int `mapstructure:"batch_size"`
	OldInactiveDays    int `mapstructure:"old_inactive_days"`
	AuditRetentionDays int `mapstructure:"audit_retention_days"`
}

type ValidationConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// SchedulerConfig 后台调度配置
type SchedulerConfig struct {
	Workers             int            `mapstructure:"workers"`
	MisfireGraceSeconds int            `mapstructure:"misfire_grace_seconds"`
	Cadences            CadencesConfig `mapstructure:"cadences"`
}

// CadencesConfig 各任务的触发周期，interval 或 cron 表达式
type CadencesConfig struct {
	CleanupScheduled  string `mapstructure:"cleanup_scheduled"`
	CleanupOrphans    string `mapstructure:"cleanup_orphans"`
	PurgeOldInactive  string `mapstructure:"purge_old_inactive"`
	ValidatePending   string `mapstructure:"validate_pending"`
	RevalidateFailed  string `mapstructure:"revalidate_failed"`
	StatsSnapshot     string `mapstructure:"stats_snapshot"`
	PurgeAuditRecords string `mapstructure:"purge_audit_records"`
}

// NotifyConfig 下游回调配置
type NotifyConfig struct {
	URL            string `mapstructure:"url"`
	ServiceToken   string `mapstructure:"service_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type KafkaConfig struct {
	Brokers []string   `mapstructure:"brokers"`
	Topic   string     `mapstructure:"topic"`
	Sasl    SaslConfig `mapstructure:"sasl"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MinIOConfig 公共镜像桶配置
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// LibPathConfig 外部工具路径
type LibPathConfig struct {
	FFprobe string `mapstructure:"ffprobe"`
}
