package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string `yaml:"databaseURL"`

	// Local blob directory, used when MinIO is not configured.
	DataDir string `yaml:"dataDir"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AIBaseURL        string `yaml:"aiBaseURL"`
	AIAPIKey         string `yaml:"aiAPIKey"`
	AIModel          string `yaml:"aiModel"`
	AITimeoutSeconds int    `yaml:"aiTimeoutSeconds"`

	// Redis backs the chat/summary rate limiter. Empty disables limiting.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MaxUploadBytes   int64 `yaml:"maxUploadBytes"`
	AICallsPerMinute int   `yaml:"aiCallsPerMinute"`
	HistoryLimit     int   `yaml:"historyLimit"`

	// Proxy addresses whose forwarded headers are trusted for client
	// attribution. Empty means requests are keyed by peer address.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("STUDY_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("STUDY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("STUDY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("STUDY_AI_BASE_URL"); v != "" {
		cfg.AIBaseURL = v
	}
	if v := os.Getenv("STUDY_AI_API_KEY"); v != "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("STUDY_AI_MODEL"); v != "" {
		cfg.AIModel = v
	}
	if v := os.Getenv("STUDY_AI_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AITimeoutSeconds = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("STUDY_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("STUDY_AI_CALLS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AICallsPerMinute = n
		}
	}
	if v := os.Getenv("STUDY_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("STUDY_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = strings.Split(v, ",")
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.AITimeoutSeconds <= 0 {
		cfg.AITimeoutSeconds = 60
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.AICallsPerMinute <= 0 {
		cfg.AICallsPerMinute = 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.AIBaseURL == "" {
		return errors.New("config: aiBaseURL is required (set in config.yaml or STUDY_AI_BASE_URL)")
	}
	if cfg.AIModel == "" {
		return errors.New("config: aiModel is required (set in config.yaml or STUDY_AI_MODEL)")
	}
	if cfg.MinioEndpoint != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minio access key, secret key, and bucket are required when minioEndpoint is set")
		}
	}
	return nil
}
