package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	ProviderStub   = "stub"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
		RateLimit   struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Store struct {
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
	} `yaml:"store"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	// Minio is optional; an empty endpoint keeps uploads in memory only.
	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Oracle struct {
		Provider  string        `yaml:"provider"`
		APIKey    string        `yaml:"apiKey"`
		Model     string        `yaml:"model"`
		BaseURL   string        `yaml:"baseURL"`
		Timeout   time.Duration `yaml:"timeout"`
		Delay     time.Duration `yaml:"delay"`
		MatchRate *float64      `yaml:"matchRate"`
	} `yaml:"oracle"`

	Session struct {
		TTL           time.Duration `yaml:"ttl"`
		MaxImageBytes int64         `yaml:"maxImageBytes"`
	} `yaml:"session"`

	Log struct {
		Development bool `yaml:"development"`
		Verbosity   int  `yaml:"verbosity"`
	} `yaml:"log"`
}

// Path returns $CONFIG_PATH or config.yaml.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load baca file config.yaml. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillPerSecond == 0 {
		c.Server.RateLimit.RefillPerSecond = 1
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "data"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = ProviderStub
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = 30 * time.Second
	}
	if c.Oracle.Delay == 0 {
		c.Oracle.Delay = 3 * time.Second
	}
	if c.Oracle.MatchRate == nil {
		rate := 0.3
		c.Oracle.MatchRate = &rate
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.MaxImageBytes == 0 {
		c.Session.MaxImageBytes = 10 << 20
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("store.driver %q: want memory, file, mysql or postgres", c.Store.Driver)
	}
	switch c.Oracle.Provider {
	case ProviderStub:
	case ProviderOpenAI:
		if c.Oracle.APIKey == "" {
			return errors.New("oracle.apiKey is required for the openai provider")
		}
	default:
		return fmt.Errorf("oracle.provider %q: want stub or openai", c.Oracle.Provider)
	}
	if r := *c.Oracle.MatchRate; r < 0 || r > 1 {
		return fmt.Errorf("oracle.matchRate %v out of [0,1]", r)
	}
	if c.Store.Driver == DriverPostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for the postgres driver")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
