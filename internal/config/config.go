package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		MaxUploadBytes int64    `yaml:"maxUploadBytes"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RatePerSecond  float64  `yaml:"ratePerSecond"`
		RateBurst      int      `yaml:"rateBurst"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`

	// Store.Driver is one of memory, badger, redis, mysql, postgres.
	Store struct {
		Driver     string `yaml:"driver"`
		BadgerPath string `yaml:"badgerPath"`
		RedisAddr  string `yaml:"redisAddr"`
		RedisPass  string `yaml:"redisPassword"`
		RedisDB    int    `yaml:"redisDB"`
		DSN        string `yaml:"dsn"`
	} `yaml:"store"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	// Minio is optional; without an endpoint images are kept inline as data URLs.
	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		// PresignTTL is the lifetime of image links handed to clients.
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	AI struct {
		OpenAIKey      string        `yaml:"openaiKey"`
		OpenAIModel    string        `yaml:"openaiModel"`
		OpenAIBaseURL  string        `yaml:"openaiBaseURL"`
		AnthropicKey   string        `yaml:"anthropicKey"`
		AnthropicModel string        `yaml:"anthropicModel"`
		GoogleCreds    string        `yaml:"googleCredentials"`
		Timeout        time.Duration `yaml:"timeout"`
		VisionTimeout  time.Duration `yaml:"visionTimeout"`
		Attempts       int           `yaml:"attempts"`
		Backoff        time.Duration `yaml:"backoff"`
	} `yaml:"ai"`

	Lookup struct {
		FoodURL     string `yaml:"foodURL"`
		CosmeticURL string `yaml:"cosmeticURL"`
		SearchURL   string `yaml:"searchURL"`
	} `yaml:"lookup"`

	Chat struct {
		MaxMessageBytes int `yaml:"maxMessageBytes"`
	} `yaml:"chat"`
}

// Load membaca .env, lalu file config (opsional), lalu override dari env.
// File yang tidak ada bukan error; semua field punya default.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("OPENAI_API_KEY", &c.AI.OpenAIKey)
	str("OPENAI_MODEL", &c.AI.OpenAIModel)
	str("OPENAI_BASE_URL", &c.AI.OpenAIBaseURL)
	str("ANTHROPIC_API_KEY", &c.AI.AnthropicKey)
	str("ANTHROPIC_MODEL", &c.AI.AnthropicModel)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.AI.GoogleCreds)
	str("LOG_MODE", &c.Log.Mode)
	str("STORE_DRIVER", &c.Store.Driver)
	str("BADGER_PATH", &c.Store.BadgerPath)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPass)
	str("DATABASE_DSN", &c.Store.DSN)
	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Minio.BucketName)
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Store.RedisDB = db
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
	if c.Server.RatePerSecond <= 0 {
		c.Server.RatePerSecond = 5
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 20
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.AI.VisionTimeout <= 0 {
		c.AI.VisionTimeout = 45 * time.Second
	}
	if c.AI.Attempts <= 0 {
		c.AI.Attempts = 2
	}
	if c.AI.Backoff <= 0 {
		c.AI.Backoff = 500 * time.Millisecond
	}
	if c.Chat.MaxMessageBytes <= 0 {
		c.Chat.MaxMessageBytes = 4 << 10
	}
	if c.Minio.PresignTTL <= 0 {
		c.Minio.PresignTTL = 24 * time.Hour
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "product-images"
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "badger", "redis":
	case "mysql", "postgres":
		if c.Store.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("store driver %s needs store.dsn or database.host", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// MySQLDSN menyusun DSN MySQL dari config.
func (c *Config) MySQLDSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
