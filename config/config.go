package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cfg 全局配置
var Cfg *Config

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	JWT       JWTConfig       `yaml:"jwt"`
	Model     ModelConfig     `yaml:"model"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	OSS       OSSConfig       `yaml:"oss"`
	MQ        MQConfig        `yaml:"mq"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type DBConfig struct {
	DSN string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

// ModelConfig OpenAI兼容模型服务配置
type ModelConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	EmbeddingModel string `yaml:"embedding_model"`

	// 多模态OCR模型，为空时图片资源仅保留图片引用
	OCRModel string `yaml:"ocr_model"`
}

type MilvusConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

type OSSConfig struct {
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket_name"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Host            string `yaml:"host"`
}

type MQConfig struct {
	Enabled    bool     `yaml:"enabled"`
	NameServer []string `yaml:"name_server"`
}

type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// cron表达式，为空时使用默认值
	ProcessSpec  string `yaml:"process_spec"`
	DiscoverSpec string `yaml:"discover_spec"`

	ProcessBatchSize  int `yaml:"process_batch_size"`
	DiscoverBatchSize int `yaml:"discover_batch_size"`

	// 自动索引附件的默认集合，0表示自动选择
	DefaultCollectionID uint `yaml:"default_collection_id"`
}

type PipelineConfig struct {
	// 单个资源解析的超时时间（秒）
	ParseTimeoutSeconds int `yaml:"parse_timeout_seconds"`

	// 锁过期时间（分钟）
	StaleLockMinutes int `yaml:"stale_lock_minutes"`
}

func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	cfg.applyDefaults()
	Cfg = cfg
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.JWT.ExpireHours == 0 {
		c.JWT.ExpireHours = 72
	}
	if c.Scheduler.ProcessSpec == "" {
		c.Scheduler.ProcessSpec = "@every 5m"
	}
	if c.Scheduler.DiscoverSpec == "" {
		c.Scheduler.DiscoverSpec = "@every 15m"
	}
	if c.Scheduler.ProcessBatchSize == 0 {
		c.Scheduler.ProcessBatchSize = 50
	}
	if c.Scheduler.DiscoverBatchSize == 0 {
		c.Scheduler.DiscoverBatchSize = 20
	}
	if c.Pipeline.ParseTimeoutSeconds == 0 {
		c.Pipeline.ParseTimeoutSeconds = 120
	}
	if c.Pipeline.StaleLockMinutes == 0 {
		c.Pipeline.StaleLockMinutes = 10
	}
}
