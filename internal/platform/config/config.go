package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"

	DefaultDataDir         = ".drillsync"
	DefaultBatchThreshold  = 5
	DefaultResumeWindow    = 24 * time.Hour
	DefaultDeliveryTimeout = 10 * time.Second
	ConfigFileName         = "drillsync.yaml"
	envPrefix              = "DRILLSYNC"
)

type Config struct {
	DataDir         string        `mapstructure:"data_dir"`
	Store           string        `mapstructure:"store"`
	DBPath          string        `mapstructure:"db_path"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	NetworkFile     string        `mapstructure:"network_file"`
	DeliveryLog     string        `mapstructure:"delivery_log"`
	BatchThreshold  int           `mapstructure:"batch_threshold"`
	ResumeWindow    time.Duration `mapstructure:"resume_window"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	DrainInterval   time.Duration `mapstructure:"drain_interval"`
}

// New returns the default configuration rooted at dataDir.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Config{
		DataDir:         dataDir,
		Store:           StoreSQLite,
		LogLevel:        "info",
		BatchThreshold:  DefaultBatchThreshold,
		ResumeWindow:    DefaultResumeWindow,
		DeliveryTimeout: DefaultDeliveryTimeout,
	}
	cfg.fillPaths()
	return cfg, nil
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"store":     "store",
	"log-level": "log_level",
	"log-file":  "log_file",
}

// Load resolves configuration from defaults, the YAML config file, DRILLSYNC_*
// environment variables (after loading .env when present) and flags, in that order.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("network_file", "")
	v.SetDefault("delivery_log", "")
	v.SetDefault("batch_threshold", DefaultBatchThreshold)
	v.SetDefault("resume_window", DefaultResumeWindow)
	v.SetDefault("delivery_timeout", DefaultDeliveryTimeout)
	v.SetDefault("drain_interval", time.Duration(0))

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if configFile == "" {
		candidate := filepath.Join(v.GetString("data_dir"), ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillPaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "drillsync.db")
	}
	if c.NetworkFile == "" {
		c.NetworkFile = filepath.Join(c.DataDir, "network.json")
	}
	if c.DeliveryLog == "" {
		c.DeliveryLog = filepath.Join(c.DataDir, "delivered.jsonl")
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data dir is required")
	}
	switch c.Store {
	case StoreSQLite, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q (want sqlite|file|memory)", c.Store)
	}
	if c.BatchThreshold <= 0 {
		return fmt.Errorf("batch threshold must be positive, got %d", c.BatchThreshold)
	}
	if c.ResumeWindow <= 0 {
		return fmt.Errorf("resume window must be positive, got %s", c.ResumeWindow)
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive, got %s", c.DeliveryTimeout)
	}
	if c.DrainInterval < 0 {
		return fmt.Errorf("drain interval must not be negative, got %s", c.DrainInterval)
	}
	return nil
}

type document struct {
	DataDir         string `yaml:"data_dir"`
	Store           string `yaml:"store"`
	DBPath          string `yaml:"db_path"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file,omitempty"`
	NetworkFile     string `yaml:"network_file"`
	DeliveryLog     string `yaml:"delivery_log"`
	BatchThreshold  int    `yaml:"batch_threshold"`
	ResumeWindow    string `yaml:"resume_window"`
	DeliveryTimeout string `yaml:"delivery_timeout"`
	DrainInterval   string `yaml:"drain_interval"`
}

// YAML renders the configuration in the same shape Load reads it.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(document{
		DataDir:         c.DataDir,
		Store:           c.Store,
		DBPath:          c.DBPath,
		LogLevel:        c.LogLevel,
		LogFile:         c.LogFile,
		NetworkFile:     c.NetworkFile,
		DeliveryLog:     c.DeliveryLog,
		BatchThreshold:  c.BatchThreshold,
		ResumeWindow:    c.ResumeWindow.String(),
		DeliveryTimeout: c.DeliveryTimeout.String(),
		DrainInterval:   c.DrainInterval.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
