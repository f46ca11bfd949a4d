package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支持的存储驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、.env文件、环境变量覆盖
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Library  LibraryConfig  `mapstructure:"library"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 记录存储配置
// driver为mongo时使用MongoConfig，其余驱动通过GORM连接
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | postgres | sqlite | mongo
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // sqlite文件路径，":memory:"为内存库
	LogSQL          bool          `mapstructure:"log_sql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 按驱动生成连接字符串
// mysql:    user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=UTC
// postgres: host=... port=... user=... password=... dbname=... sslmode=disable TimeZone=UTC
// sqlite:   文件路径
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
	case DriverSQLite:
		return d.Path
	default:
		// loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
		loc := url.QueryEscape(d.Loc)
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
	}
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig 缓存配置
// 缓存是可选的：关闭或Redis不可用时请求直接访问存储
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BookTTL         time.Duration `mapstructure:"book_ttl"`
	StatsTTL        time.Duration `mapstructure:"stats_ttl"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// LibraryConfig 业务默认值和上限
type LibraryConfig struct {
	DefaultPageSize      int `mapstructure:"default_page_size"`
	MaxPageSize          int `mapstructure:"max_page_size"`
	DefaultSearchLimit   int `mapstructure:"default_search_limit"`
	MaxSearchLimit       int `mapstructure:"max_search_limit"`
	DefaultLoanDays      int `mapstructure:"default_loan_days"`
	PopularGenresLimit   int `mapstructure:"popular_genres_limit"`
	RecentAdditionsLimit int `mapstructure:"recent_additions_limit"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC host:port
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Load 加载配置
// 优先级（从高到低）：
// 1. 环境变量（如LIBRARY_DATABASE_DRIVER → database.driver）
// 2. .env文件（只补充未设置的环境变量）
// 3. config/config.yaml（LIBRARY_ENV=prod时读取config.prod.yaml）
// 4. 内置默认值
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 从指定文件加载配置，path为空时按默认路径查找
// 配置文件不存在时只使用默认值和环境变量
func LoadFile(path string) (*Config, error) {
	// .env不存在是正常情况
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		// 显式指定的文件必须存在
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		name := "config"
		if env := os.Getenv("LIBRARY_ENV"); env != "" {
			name = "config." + env
		}
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 环境变量绑定（LIBRARY_DATABASE_PASSWORD → database.password）
	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 内置默认值
// AutomaticEnv只对viper已知的key生效，所以每个key都需要默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Library API")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "library")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "UTC")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "library.db")
	v.SetDefault("database.log_sql", false)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "library")
	v.SetDefault("mongo.collection", "books")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 2*time.Second)
	v.SetDefault("redis.read_timeout", time.Second)
	v.SetDefault("redis.write_timeout", time.Second)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.book_ttl", 10*time.Minute)
	v.SetDefault("cache.stats_ttl", 30*time.Second)
	v.SetDefault("cache.breaker_failures", 5)
	v.SetDefault("cache.breaker_timeout", 30*time.Second)

	v.SetDefault("library.default_page_size", 10)
	v.SetDefault("library.max_page_size", 100)
	v.SetDefault("library.default_search_limit", 10)
	v.SetDefault("library.max_search_limit", 50)
	v.SetDefault("library.default_loan_days", 14)
	v.SetDefault("library.popular_genres_limit", 5)
	v.SetDefault("library.recent_additions_limit", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.enable_caller", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "library-api")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.port", 9090)

	v.SetDefault("cors.allow_origins", []string{"*"})
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("不支持的存储驱动: %q", cfg.Database.Driver)
	}

	lib := cfg.Library
	if lib.MaxPageSize < 1 || lib.DefaultPageSize < 1 || lib.DefaultPageSize > lib.MaxPageSize {
		return fmt.Errorf("分页配置无效: default=%d, max=%d", lib.DefaultPageSize, lib.MaxPageSize)
	}
	if lib.MaxSearchLimit < 1 || lib.DefaultSearchLimit < 1 || lib.DefaultSearchLimit > lib.MaxSearchLimit {
		return fmt.Errorf("搜索条数配置无效: default=%d, max=%d", lib.DefaultSearchLimit, lib.MaxSearchLimit)
	}
	if lib.DefaultLoanDays < 1 || lib.DefaultLoanDays > 90 {
		return fmt.Errorf("默认借阅天数无效: %d", lib.DefaultLoanDays)
	}

	if cfg.GRPC.Enabled && (cfg.GRPC.Port <= 0 || cfg.GRPC.Port > 65535) {
		return fmt.Errorf("无效的gRPC端口: %d", cfg.GRPC.Port)
	}

	return nil
}
