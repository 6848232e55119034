// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigDir 默认配置目录
const DefaultConfigDir = "configs"

// DefaultAPIURL 生成服务默认地址
const DefaultAPIURL = "http://localhost:5001"

var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从默认目录加载配置
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigDir)
}

// LoadFrom 加载配置
// 按优先级加载：默认值 -> config.yaml -> config.<env>.yaml -> 环境变量
// 配置文件均为可选，缺失时只使用默认值与环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml")); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := loadConfigFile(v, filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_URL 沿用前端约定的变量名
	if err := v.BindEnv("generation.api_url", "API_URL", "GENERATION_API_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind API_URL: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(&cfg)
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并合并到 viper；文件不存在时跳过
func loadConfigFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if err := v.MergeConfig(reader); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}
	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// normalize 修正空值与越界值
func normalize(cfg *Config) {
	cfg.Generation.APIURL = strings.TrimRight(strings.TrimSpace(cfg.Generation.APIURL), "/")
	if cfg.Generation.APIURL == "" {
		cfg.Generation.APIURL = DefaultAPIURL
	}
	if cfg.Generation.ReadBufferSize <= 0 {
		cfg.Generation.ReadBufferSize = 4096
	}
	if cfg.Session.ProgressCap <= 0 || cfg.Session.ProgressCap >= 100 {
		cfg.Session.ProgressCap = 95
	}
	if cfg.Session.ProgressStep <= 0 {
		cfg.Session.ProgressStep = 5
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "z-novel-wizard")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "0s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	v.SetDefault("generation.api_url", DefaultAPIURL)
	v.SetDefault("generation.connect_timeout", "30s")
	v.SetDefault("generation.read_buffer_size", 4096)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.key_prefix", "")
	v.SetDefault("store.sqlite.path", "data/wizard.db")
	v.SetDefault("store.sqlite.busy_timeout", "5s")

	v.SetDefault("store.redis.host", "localhost")
	v.SetDefault("store.redis.port", 6379)
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.min_idle_conns", 1)
	v.SetDefault("store.redis.dial_timeout", "5s")
	v.SetDefault("store.redis.read_timeout", "3s")
	v.SetDefault("store.redis.write_timeout", "3s")

	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.database", "z_novel_wizard")
	v.SetDefault("store.postgres.ssl_mode", "disable")
	v.SetDefault("store.postgres.max_open_conns", 5)
	v.SetDefault("store.postgres.max_idle_conns", 2)
	v.SetDefault("store.postgres.conn_max_lifetime", "30m")

	v.SetDefault("session.progress_step", 5)
	v.SetDefault("session.progress_cap", 95)
	v.SetDefault("session.ack_delay", "500ms")

	v.SetDefault("wizard.default_character", "主角")
	v.SetDefault("wizard.resume_active_draft", true)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_second", 20)
}
