package appconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of both services. Each binary reads the section
// it needs.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Bidder  BidderConfig  `yaml:"bidder"`
	Manager ManagerConfig `yaml:"manager"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type BidderConfig struct {
	Port       int         `yaml:"port"`
	ManagerURL string      `yaml:"manager_url"`
	NATS       NATSConfig  `yaml:"nats"`
	Redis      RedisConfig `yaml:"redis"`
}

type NATSConfig struct {
	Enabled          bool   `yaml:"enabled"`
	URL              string `yaml:"url"`
	Stream           string `yaml:"stream"`
	SubjectPrefix    string `yaml:"subject_prefix"`
	IncludeCountdown bool   `yaml:"include_countdown"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ManagerConfig struct {
	Port        int      `yaml:"port"`
	CatalogPath string   `yaml:"catalog_path"`
	BidderURLs  []string `yaml:"bidder_urls"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Pretty: true},
		Bidder: BidderConfig{
			Port:       8081,
			ManagerURL: "http://localhost:8080",
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				Stream:        "AUCTION_EVENTS",
				SubjectPrefix: "auction.events",
			},
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Channel: "auction:events",
			},
		},
		Manager: ManagerConfig{
			Port:        8080,
			CatalogPath: "catalog.yaml",
			BidderURLs:  []string{"http://localhost:8081"},
		},
	}
}

// Load reads .env, then the YAML file named by AUCTION_CONFIG (if any), then
// environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path := os.Getenv("AUCTION_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Bidder.Port = getEnvAsInt("BIDDER_PORT", cfg.Bidder.Port)
	cfg.Bidder.ManagerURL = getEnv("MANAGER_URL", cfg.Bidder.ManagerURL)
	cfg.Bidder.NATS.Enabled = getEnvAsBool("NATS_ENABLED", cfg.Bidder.NATS.Enabled)
	cfg.Bidder.NATS.URL = getEnv("NATS_URL", cfg.Bidder.NATS.URL)
	cfg.Bidder.NATS.Stream = getEnv("NATS_STREAM", cfg.Bidder.NATS.Stream)
	cfg.Bidder.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.Bidder.NATS.SubjectPrefix)
	cfg.Bidder.NATS.IncludeCountdown = getEnvAsBool("NATS_INCLUDE_COUNTDOWN", cfg.Bidder.NATS.IncludeCountdown)
	cfg.Bidder.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Bidder.Redis.Enabled)
	cfg.Bidder.Redis.Addr = getEnv("REDIS_ADDR", cfg.Bidder.Redis.Addr)
	cfg.Bidder.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Bidder.Redis.Password)
	cfg.Bidder.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Bidder.Redis.DB)
	cfg.Bidder.Redis.Channel = getEnv("REDIS_CHANNEL", cfg.Bidder.Redis.Channel)

	cfg.Manager.Port = getEnvAsInt("MANAGER_PORT", cfg.Manager.Port)
	cfg.Manager.CatalogPath = getEnv("CATALOG_PATH", cfg.Manager.CatalogPath)
	if urls := os.Getenv("BIDDER_URLS"); urls != "" {
		cfg.Manager.BidderURLs = splitList(urls)
	}
}

// Validate rejects settings neither service can start with.
func (c Config) Validate() error {
	if c.Bidder.Port <= 0 || c.Bidder.Port > 65535 {
		return fmt.Errorf("invalid bidder port %d", c.Bidder.Port)
	}
	if c.Manager.Port <= 0 || c.Manager.Port > 65535 {
		return fmt.Errorf("invalid manager port %d", c.Manager.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
