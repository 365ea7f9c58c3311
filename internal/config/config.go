package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	Storage struct {
		Driver   string `json:"driver"` // memory, bolt or mongodb
		BoltPath string `json:"boltPath"`
	} `json:"storage"`
	MongoDB struct {
		URI      string `json:"uri"`
		Database string `json:"database"`
	} `json:"mongodb"`
	Redis struct {
		Addr           string `json:"addr"` // empty selects the in-process locker
		Password       string `json:"password"`
		DB             int    `json:"db"`
		LockTTLSeconds int    `json:"lockTtlSeconds"`
	} `json:"redis"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	Rating struct {
		KFactor int `json:"kFactor"`
	} `json:"rating"`
	Challenges struct {
		PendingTTLHours int    `json:"pendingTtlHours"` // 0 disables cleanup
		CleanupSchedule string `json:"cleanupSchedule"`
	} `json:"challenges"`
	Log struct {
		Level       string `json:"level"`
		Development bool   `json:"development"`
	} `json:"log"`
}

// LoadDotEnv loads variables from a .env file in the working directory, if
// present. Variables already set in the environment win.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	configStr := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.BoltPath == "" {
		c.Storage.BoltPath = "ladder.db"
	}
	if c.MongoDB.Database == "" {
		c.MongoDB.Database = "game_ladder"
	}
	if c.Redis.LockTTLSeconds == 0 {
		c.Redis.LockTTLSeconds = 30
	}
	if c.Frontend.URL == "" {
		c.Frontend.URL = "http://localhost:3000"
	}
	if c.Rating.KFactor == 0 {
		c.Rating.KFactor = 32
	}
	if c.Challenges.CleanupSchedule == "" {
		c.Challenges.CleanupSchedule = "@hourly"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

func (c *Config) PendingChallengeTTL() time.Duration {
	return time.Duration(c.Challenges.PendingTTLHours) * time.Hour
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("LADDER_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
