package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP presentation server configuration.
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int      `yaml:"idleTimeoutSeconds"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
	SwaggerEnabled      bool     `yaml:"swaggerEnabled"`
	SwaggerSpecPath     string   `yaml:"swaggerSpecPath"`
	MetricsEnabled      bool     `yaml:"metricsEnabled"`
	PprofEnabled        bool     `yaml:"pprofEnabled"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // "debug", "info", "warn", "error"
	Development bool   `yaml:"development"`
}

// ProviderConfig describes how to reach the signing provider.
type ProviderConfig struct {
	URLs                       []string `yaml:"urls"`           // primary first, then fallbacks
	ExpectedClient             string   `yaml:"expectedClient"` // substring of web3_clientVersion, empty accepts any
	ConnectTimeoutSeconds      int      `yaml:"connectTimeoutSeconds"`
	CallTimeoutSeconds         int      `yaml:"callTimeoutSeconds"`
	AccountPollIntervalSeconds int      `yaml:"accountPollIntervalSeconds"`
}

// HistoryServiceConfig holds the Etherscan-compatible history API configuration.
type HistoryServiceConfig struct {
	BaseURL              string  `yaml:"baseURL"` // overrides the network definition's historyApiUrl
	APIKey               string  `yaml:"apiKey"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimitPerSecond   float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst       int     `yaml:"rateLimitBurst"`
	MaxResults           int     `yaml:"maxResults"`
}

// TokensConfig holds token registry settings.
type TokensConfig struct {
	DataDir                 string `yaml:"dataDir"` // directory with <network>.json seed files
	MetadataCacheTTLMinutes int    `yaml:"metadataCacheTTLMinutes"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Network        string               `yaml:"network"`
	Provider       ProviderConfig       `yaml:"provider"`
	HistoryService HistoryServiceConfig `yaml:"historyService"`
	Tokens         TokensConfig         `yaml:"tokens"`
}

// Load reads the YAML configuration file from the given path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML config data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		// must outlive one provider call plus the history fetch
		cfg.Server.WriteTimeoutSeconds = 75
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Server.SwaggerSpecPath == "" {
		cfg.Server.SwaggerSpecPath = "./docs/swagger.yaml"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Network == "" {
		cfg.Network = "ethereum"
		logrus.Infof("network not set, defaulting to %s", cfg.Network)
	}
	cfg.Network = strings.ToLower(strings.TrimSpace(cfg.Network))

	if cfg.Provider.ConnectTimeoutSeconds <= 0 {
		cfg.Provider.ConnectTimeoutSeconds = 10
	}
	if cfg.Provider.CallTimeoutSeconds <= 0 {
		cfg.Provider.CallTimeoutSeconds = 30
	}
	if cfg.Provider.AccountPollIntervalSeconds <= 0 {
		cfg.Provider.AccountPollIntervalSeconds = 5
	}

	if cfg.HistoryService.RequestTimeoutMillis <= 0 {
		cfg.HistoryService.RequestTimeoutMillis = 30000
	}
	if cfg.HistoryService.RateLimitPerSecond <= 0 {
		cfg.HistoryService.RateLimitPerSecond = 5 // free tier limit of most explorers
	}
	if cfg.HistoryService.RateLimitBurst <= 0 {
		cfg.HistoryService.RateLimitBurst = 1
	}
	if cfg.HistoryService.MaxResults <= 0 {
		cfg.HistoryService.MaxResults = 100
	}
	if key := os.Getenv("HISTORY_API_KEY"); key != "" && cfg.HistoryService.APIKey == "" {
		cfg.HistoryService.APIKey = key
	}

	if cfg.Tokens.DataDir == "" {
		cfg.Tokens.DataDir = "data/tokens"
	}
	if cfg.Tokens.MetadataCacheTTLMinutes <= 0 {
		cfg.Tokens.MetadataCacheTTLMinutes = 60
	}
}

// Validate checks values that have no sensible default.
func (cfg *Config) Validate() error {
	for i, u := range cfg.Provider.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("provider.urls[%d] is empty", i)
		}
	}
	if len(cfg.Provider.URLs) == 0 {
		logrus.Warn("provider.urls is empty: the session will run without a signing provider")
	}
	if cfg.HistoryService.APIKey == "" {
		logrus.Warn("historyService.apiKey not set: history requests may be throttled or refused")
	}
	return nil
}
