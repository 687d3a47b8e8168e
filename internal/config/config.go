package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Client  ClientConfig  `mapstructure:"client"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// ModelConfig OpenAI 兼容模型接入配置
// APIKey 为空时后端退化为内置顾问（离线可用）
type ModelConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ClientConfig 协议客户端的路由表
// DatasetPath 中的 {dataset_id} 在构造请求时替换
type ClientConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	MentorPath     string        `mapstructure:"mentor_path"`
	DatasetPath    string        `mapstructure:"dataset_path"`
	AnalysisPath   string        `mapstructure:"analysis_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ADVISOR")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，文件中没有时回落到环境变量
	if cfg.Model.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.Model.APIKey = apiKey
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Client.MentorPath == "" {
		c.Client.MentorPath = "/api/advisor/stream"
	}
	if c.Client.DatasetPath == "" {
		c.Client.DatasetPath = "/api/dataset/{dataset_id}/stream"
	}
	if c.Client.AnalysisPath == "" {
		c.Client.AnalysisPath = "/api/analysis/stream"
	}
	if c.Client.ConnectTimeout <= 0 {
		c.Client.ConnectTimeout = 15 * time.Second
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CleanupInterval <= 0 {
		c.Session.CleanupInterval = time.Hour
	}
}

func Get() *Config {
	return cfg
}
