package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Роли процесса
const (
	RoleAll    = "all"
	RoleAPI    = "api"
	RoleWorker = "worker"
)

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	QueueDriverAsynq  = "asynq"
	QueueDriverLocal  = "local"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	AppPort  string `mapstructure:"APP_PORT"`
	AppRole  string `mapstructure:"APP_ROLE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBScheme   string `mapstructure:"DB_SCHEME"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`

	// --- Redis (кеш и брокер asynq) ---
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	CacheDriver string `mapstructure:"CACHE_DRIVER"`
	QueueDriver string `mapstructure:"QUEUE_DRIVER"`

	// --- Лента ---
	FeedListLimit   int           `mapstructure:"FEED_LIST_LIMIT"`
	FeedCacheTTL    time.Duration `mapstructure:"FEED_CACHE_TTL"`
	FeedPageSize    int           `mapstructure:"FEED_PAGE_SIZE"`
	FeedMaxPageSize int           `mapstructure:"FEED_MAX_PAGE_SIZE"`

	// --- Fanout ---
	FanoutBatchSize   int           `mapstructure:"FANOUT_BATCH_SIZE"`
	FanoutConcurrency int           `mapstructure:"FANOUT_CONCURRENCY"`
	FanoutMaxRetry    int           `mapstructure:"FANOUT_MAX_RETRY"`
	FanoutTimeout     time.Duration `mapstructure:"FANOUT_TIMEOUT"`
	FanoutWorkers     int           `mapstructure:"FANOUT_WORKERS"`

	// --- Подписки (offset-пагинация) ---
	FriendshipPageSize    int `mapstructure:"FRIENDSHIP_PAGE_SIZE"`
	FriendshipMaxPageSize int `mapstructure:"FRIENDSHIP_MAX_PAGE_SIZE"`
}

// String реализует интерфейс Stringer
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppEnv: %s\n", c.AppEnv))
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  AppRole: %s\n", c.AppRole))
	sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
	sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
	sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
	sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
	sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))

	// пароли маскируем
	sb.WriteString("  DBPassword: " + mask(c.DBPassword) + "\n")

	sb.WriteString(fmt.Sprintf("  RedisAddr: %s (cache db=%d, queue db=%d)\n", c.RedisAddr, c.RedisDB, c.RedisQueueDB))
	sb.WriteString("  RedisPassword: " + mask(c.RedisPassword) + "\n")
	sb.WriteString(fmt.Sprintf("  CacheDriver: %s\n", c.CacheDriver))
	sb.WriteString(fmt.Sprintf("  QueueDriver: %s\n", c.QueueDriver))

	sb.WriteString(fmt.Sprintf("  FeedListLimit: %d\n", c.FeedListLimit))
	sb.WriteString(fmt.Sprintf("  FeedCacheTTL: %s\n", c.FeedCacheTTL))
	sb.WriteString(fmt.Sprintf("  FeedPageSize: %d (max %d)\n", c.FeedPageSize, c.FeedMaxPageSize))
	sb.WriteString(fmt.Sprintf("  Fanout: batch=%d concurrency=%d retry=%d timeout=%s\n",
		c.FanoutBatchSize, c.FanoutConcurrency, c.FanoutMaxRetry, c.FanoutTimeout))
	sb.WriteString(fmt.Sprintf("  FriendshipPageSize: %d (max %d)\n", c.FriendshipPageSize, c.FriendshipMaxPageSize))

	return sb.String()
}

func mask(s string) string {
	if s != "" {
		return "********"
	}
	return "(empty)"
}

var keys = []string{
	"APP_ENV", "APP_PORT", "APP_ROLE", "LOG_LEVEL",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME", "DB_MAX_CONNS",
	"REDIS_ADDR", "REDIS_DB", "REDIS_QUEUE_DB", "REDIS_PASSWORD",
	"CACHE_DRIVER", "QUEUE_DRIVER",
	"FEED_LIST_LIMIT", "FEED_CACHE_TTL", "FEED_PAGE_SIZE", "FEED_MAX_PAGE_SIZE",
	"FANOUT_BATCH_SIZE", "FANOUT_CONCURRENCY", "FANOUT_MAX_RETRY", "FANOUT_TIMEOUT", "FANOUT_WORKERS",
	"FRIENDSHIP_PAGE_SIZE", "FRIENDSHIP_MAX_PAGE_SIZE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ROLE", RoleAll)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "feed")
	v.SetDefault("DB_SCHEME", "public")
	v.SetDefault("DB_MAX_CONNS", 50)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 0)

	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("QUEUE_DRIVER", QueueDriverAsynq)

	v.SetDefault("FEED_LIST_LIMIT", 200)
	v.SetDefault("FEED_CACHE_TTL", 7*24*time.Hour)
	v.SetDefault("FEED_PAGE_SIZE", 20)
	v.SetDefault("FEED_MAX_PAGE_SIZE", 20)

	v.SetDefault("FANOUT_BATCH_SIZE", 1000)
	v.SetDefault("FANOUT_CONCURRENCY", 8)
	v.SetDefault("FANOUT_MAX_RETRY", 3)
	v.SetDefault("FANOUT_TIMEOUT", 2*time.Minute)
	v.SetDefault("FANOUT_WORKERS", 4)

	v.SetDefault("FRIENDSHIP_PAGE_SIZE", 20)
	v.SetDefault("FRIENDSHIP_MAX_PAGE_SIZE", 20)
}

// LoadFromEnv загружает конфигурацию из переменных окружения
func LoadFromEnv() (*Config, error) {
	// Загружаем .env только для локальной разработки
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.FeedListLimit < 1 {
		errs = append(errs, fmt.Errorf("FEED_LIST_LIMIT must be >= 1, got %d", c.FeedListLimit))
	}
	if c.FeedCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("FEED_CACHE_TTL must be positive, got %s", c.FeedCacheTTL))
	}
	if c.FeedPageSize < 1 || c.FeedMaxPageSize < c.FeedPageSize {
		errs = append(errs, fmt.Errorf("FEED_PAGE_SIZE must be in [1, FEED_MAX_PAGE_SIZE], got %d/%d", c.FeedPageSize, c.FeedMaxPageSize))
	}
	if c.FriendshipPageSize < 1 || c.FriendshipMaxPageSize < c.FriendshipPageSize {
		errs = append(errs, fmt.Errorf("FRIENDSHIP_PAGE_SIZE must be in [1, FRIENDSHIP_MAX_PAGE_SIZE], got %d/%d", c.FriendshipPageSize, c.FriendshipMaxPageSize))
	}
	if c.FanoutBatchSize < 1 || c.FanoutConcurrency < 1 {
		errs = append(errs, fmt.Errorf("FANOUT_BATCH_SIZE and FANOUT_CONCURRENCY must be >= 1"))
	}
	switch c.AppRole {
	case RoleAll, RoleAPI, RoleWorker:
	default:
		errs = append(errs, fmt.Errorf("unknown APP_ROLE %q", c.AppRole))
	}
	switch c.CacheDriver {
	case CacheDriverRedis, CacheDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver))
	}
	switch c.QueueDriver {
	case QueueDriverAsynq, QueueDriverLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_DRIVER %q", c.QueueDriver))
	}
	// локальная очередь живёт в процессе API, отдельный воркер её не увидит
	if c.QueueDriver == QueueDriverLocal && c.AppRole == RoleWorker {
		errs = append(errs, errors.New("QUEUE_DRIVER=local cannot run with APP_ROLE=worker"))
	}
	return errors.Join(errs...)
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
