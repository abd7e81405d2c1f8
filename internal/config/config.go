package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Highscore HighscoreConfig `mapstructure:"highscore"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rotated JSON log next to the console output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Path     string `mapstructure:"path"`
	SeedFile string `mapstructure:"seed_file"`
	Debug    bool   `mapstructure:"debug"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// Backend names accepted by highscore.backend and snapshot.backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendNone   = "none"
)

type HighscoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type QuizConfig struct {
	MixedCategoryID int           `mapstructure:"mixed_category_id"`
	MaxQuestions    int           `mapstructure:"max_questions"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	ExitWindow      time.Duration `mapstructure:"exit_window"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"`
	// EditsPerSecond limits countdown message edits per chat.
	EditsPerSecond float64 `mapstructure:"edits_per_second"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.path", "quiz.db")
	v.SetDefault("database.seed_file", "")
	v.SetDefault("database.debug", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "quiz:")
	v.SetDefault("redis.snapshot_ttl", 24*time.Hour)

	v.SetDefault("highscore.backend", BackendSQLite)
	v.SetDefault("snapshot.backend", BackendFile)
	v.SetDefault("snapshot.dir", "sessions")

	v.SetDefault("quiz.mixed_category_id", 4)
	v.SetDefault("quiz.max_questions", 0)
	v.SetDefault("quiz.tick_interval", time.Second)
	v.SetDefault("quiz.exit_window", 2*time.Second)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.edits_per_second", 1.0)
}

// Load reads config.yaml from path (optional), then .env, then the
// environment. QUIZ_DATABASE_PATH overrides database.path and so on;
// TELEGRAM_BOT_TOKEN is accepted for the bot token.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", "QUIZ_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Highscore.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown highscore backend %q", c.Highscore.Backend)
	}
	switch c.Snapshot.Backend {
	case BackendNone, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if c.Quiz.TickInterval <= 0 {
		return fmt.Errorf("quiz.tick_interval must be positive")
	}
	return nil
}

// UsesRedis reports whether any backend needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Highscore.Backend == BackendRedis || c.Snapshot.Backend == BackendRedis
}
