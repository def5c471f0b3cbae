package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Cache       CacheConfig       `mapstructure:"cache"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Importer    ImporterConfig    `mapstructure:"importer"`
	Stats       StatsConfig       `mapstructure:"stats"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT"`
	User         string `mapstructure:"user" envconfig:"DB_USER"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig is optional; with an empty address the refresh lock degrades to
// in-process serialization only.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" envconfig:"REDIS_ADDR"`
	Password string `mapstructure:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"db"`
}

type ObjectStoreConfig struct {
	Endpoint        string `mapstructure:"endpoint" envconfig:"OBJECT_STORE_ENDPOINT"`
	AccessKeyID     string `mapstructure:"access_key_id" envconfig:"OBJECT_STORE_ACCESS_KEY"`
	SecretAccessKey string `mapstructure:"secret_access_key" envconfig:"OBJECT_STORE_SECRET_KEY"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket" envconfig:"OBJECT_STORE_BUCKET"`
}

type CacheConfig struct {
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret" envconfig:"JWT_SECRET"`
	Expiry     time.Duration `mapstructure:"expiry"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type ImporterConfig struct {
	DropDir      string        `mapstructure:"drop_dir" envconfig:"IMPORTER_DROP_DIR"`
	ProcessedDir string        `mapstructure:"processed_dir"`
	ErrorDir     string        `mapstructure:"error_dir"`
	Interval     time.Duration `mapstructure:"interval"`
}

type StatsConfig struct {
	TopN int `mapstructure:"top_n"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// FEESCHED_* environment variables win over the file.
	if err := envconfig.Process("feesched", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("cache.staleness_window", 24*time.Hour)
	viper.SetDefault("cache.fetch_timeout", 10*time.Second)
	viper.SetDefault("cache.lock_ttl", 30*time.Second)
	viper.SetDefault("jwt.expiry", 12*time.Hour)
	viper.SetDefault("rate_limit.rps", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("importer.interval", time.Minute)
	viper.SetDefault("stats.top_n", 10)
}
