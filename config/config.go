// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config is the whole process configuration, read from the environment.
type Config struct {
	Database  DatabaseConfig
	Broker    BrokerConfig
	Inference InferenceConfig
	Storage   StorageConfig

	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":5200"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	WorkerPoolSize       int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
}

type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"postgres"`
	Host       string `env:"DB_HOST"`
	User       string `env:"DB_USER"`
	Password   string `env:"DB_PWD"`
	Name       string `env:"DB_NAME"`
	Port       int    `env:"DB_PORT"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"play_llm.db"`
}

// BrokerConfig points at the redis instance backing the task queue.
// An empty IP disables the queue.
type BrokerConfig struct {
	IP       string `env:"CELERY_REDIS_IP"`
	Port     int    `env:"CELERY_REDIS_PORT" envDefault:"6379"`
	QueueKey string `env:"TASK_QUEUE_KEY" envDefault:"play_llm:tasks"`
}

// InferenceConfig locates the model inference server.
type InferenceConfig struct {
	IP   string `env:"OLLAMA_SERVER_IP"`
	Port int    `env:"OLLAMA_SERVER_PORT" envDefault:"11434"`
}

// StorageConfig selects where model artifacts are written. R2 is used when
// both the account and the bucket are set, the local upload dir otherwise.
type StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"uploads"`
}

func (s StorageConfig) R2Enabled() bool {
	return s.AccountID != "" && s.Bucket != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		log.Println("[Config] no .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, cfg.Validate()
}

// FromMap parses configuration from an explicit variable set instead of the
// process environment.
func FromMap(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for driver %q", c.Database.Driver)
		}
		if c.Database.Port <= 0 {
			return fmt.Errorf("DB_PORT must be a positive integer for driver %q", c.Database.Driver)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.WorkerPoolSize)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// DSN builds the driver specific connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), d.Name)
	case DriverSQLite:
		return d.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
	}
}

func (b BrokerConfig) Enabled() bool { return b.IP != "" }

// URL is the broker address, always database 0.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("redis://%s/0", net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

func (i InferenceConfig) Enabled() bool { return i.IP != "" }

func (i InferenceConfig) URL() string {
	return "http://" + net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}
