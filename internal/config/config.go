package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Security   SecurityConfig   `yaml:"security" mapstructure:"security"`
	Upload     UploadConfig     `yaml:"upload" mapstructure:"upload"`
	Billing    BillingConfig    `yaml:"billing" mapstructure:"billing"`
	Reporting  ReportingConfig  `yaml:"reporting" mapstructure:"reporting"`
}

type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"` // postgres, sqlite
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`       // 优先于下方拆分字段
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Name            string        `yaml:"name" mapstructure:"name"`
	SSLMode         string        `yaml:"sslmode" mapstructure:"sslmode"`
	SQLitePath      string        `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// PostgresDSN 组装 Postgres 连接串
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	ssl := d.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, ssl,
	)
}

type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// StorageConfig 规则/计划快照的持久化后端
type StorageConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`       // memory, database, redis
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"` // redis key 前缀
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"` // json, text
	Output     string `yaml:"output" mapstructure:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // MB
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // days
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // number of backup files
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

type MonitoringConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MetricsPath string        `yaml:"metrics_path" mapstructure:"metrics_path"`
	Tracing     TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// TracingConfig OpenTelemetry 追踪配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`         // OTLP gRPC 端点，例如 http://otel-collector:4317
	Insecure    bool    `yaml:"insecure" mapstructure:"insecure"`         // 是否使用明文（本地/开发）
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio"` // 采样率 0.0~1.0
	ServiceName string  `yaml:"service_name" mapstructure:"service_name"`
}

type SecurityConfig struct {
	CORS         CORSConfig         `yaml:"cors" mapstructure:"cors"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

type RateLimitingConfig struct {
	Enabled           bool                  `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int                   `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int                   `yaml:"burst" mapstructure:"burst"`
	KeyHeader         string                `yaml:"key_header" mapstructure:"key_header"` // 为空时按客户端 IP
	WhitelistIPs      []string              `yaml:"whitelist_ips" mapstructure:"whitelist_ips"`
	Paths             []PathRateLimitConfig `yaml:"paths" mapstructure:"paths"`
}

// PathRateLimitConfig 按路径前缀覆盖的限流配置
type PathRateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	Prefix            string `yaml:"prefix" mapstructure:"prefix"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int    `yaml:"burst" mapstructure:"burst"`
}

type UploadConfig struct {
	AllowedPrefixes []string `yaml:"allowed_prefixes" mapstructure:"allowed_prefixes"`
	MaxFileSize     int64    `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes, 0 不限制
}

// BillingConfig 计费看板数据（Token 与线索）
type BillingConfig struct {
	TokenTotal     int64   `yaml:"token_total" mapstructure:"token_total"`
	TokenUsed      int64   `yaml:"token_used" mapstructure:"token_used"`
	LeadsAcquired  int     `yaml:"leads_acquired" mapstructure:"leads_acquired"`
	LeadsPurchased int     `yaml:"leads_purchased" mapstructure:"leads_purchased"`
	CostPerLead    float64 `yaml:"cost_per_lead" mapstructure:"cost_per_lead"`
	Month          string  `yaml:"month" mapstructure:"month"`
}

type ReportingConfig struct {
	RankingPoolSize int `yaml:"ranking_pool_size" mapstructure:"ranking_pool_size"`
}

// EnvPrefix 环境变量前缀，server.port 对应 MATERIALHUB_SERVER_PORT
const EnvPrefix = "MATERIALHUB"

// SetupEnv 开启环境变量覆盖
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load 以默认配置为底，叠加 viper 中读取到的配置文件与环境变量
func Load() (*Config, error) {
	cfg := GetDefaultConfig()
	// Unmarshal 只认识 viper 已知的键，环境变量需要默认值先登记
	registerDefaults(viper.GetViper(), "", reflect.ValueOf(cfg).Elem())
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		field := val.Field(i)
		if field.Kind() == reflect.Struct {
			registerDefaults(v, key, field)
			continue
		}
		v.SetDefault(key, field.Interface())
	}
}

// GetDefaultConfig 返回默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "password",
			Name:            "materialhub",
			SSLMode:         "disable",
			SQLitePath:      "./data/materialhub.db",
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 3600 * time.Second,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
		},
		Storage: StorageConfig{
			Backend:   "database",
			KeyPrefix: "materialhub:",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "./logs/materialhub.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
		Monitoring: MonitoringConfig{
			Enabled:     true,
			MetricsPath: "/metrics",
			Tracing: TracingConfig{
				Enabled:     false,
				Endpoint:    "http://localhost:4317",
				Insecure:    true,
				SampleRatio: 0.1,
				ServiceName: "materialhub",
			},
		},
		Security: SecurityConfig{
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			},
			RateLimiting: RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				Burst:             60,
			},
		},
		Upload: UploadConfig{
			AllowedPrefixes: []string{"image/", "video/"},
			MaxFileSize:     500 << 20,
		},
		Billing: BillingConfig{
			TokenTotal:     10000000,
			TokenUsed:      2345000,
			LeadsAcquired:  1250,
			LeadsPurchased: 5000,
			CostPerLead:    15.0,
			Month:          "2023-10",
		},
		Reporting: ReportingConfig{
			RankingPoolSize: 5,
		},
	}
}
