package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the medicinett server
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// SchedulerConfig holds the daily trigger settings
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SweepSpec  string `mapstructure:"sweep_spec"`  // cron spec for the missed sweep
	ReportSpec string `mapstructure:"report_spec"` // cron spec for the daily report
}

// VoiceConfig holds voice command settings
type VoiceConfig struct {
	TranslateEnabled bool   `mapstructure:"translate_enabled"`
	TranslateURL     string `mapstructure:"translate_url"`
	SourceLang       string `mapstructure:"source_lang"`
	TargetLang       string `mapstructure:"target_lang"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "medicinett.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "reports"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medicinett.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment overrides: MEDICINETT_SERVER_PORT etc.
	v.SetEnvPrefix("medicinett")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_spec", "59 23 * * *")
	v.SetDefault("scheduler.report_spec", "0 0 * * *")

	v.SetDefault("voice.translate_enabled", true)
	v.SetDefault("voice.translate_url", "https://api.mymemory.translated.net/get")
	v.SetDefault("voice.source_lang", "hi")
	v.SetDefault("voice.target_lang", "en")

	v.SetDefault("security.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".medicinett")
}

// Validate checks the loaded configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.SweepSpec == "" {
			return fmt.Errorf("scheduler.sweep_spec must be set when scheduler is enabled")
		}
		if c.Scheduler.ReportSpec == "" {
			return fmt.Errorf("scheduler.report_spec must be set when scheduler is enabled")
		}
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
