package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/pokeflow/pkg/logging"
)

// DefaultBaseURL is the public Pokémon API root
const DefaultBaseURL = "https://pokeapi.co/api/v2"

type Settings struct {
	API           APISettings       `yaml:"api"`
	TransportType string            `yaml:"transportType" env:"POKEFLOW_TRANSPORT"`
	Transport     TransportSettings `yaml:"transport"`
	Cache         CacheSettings     `yaml:"cache"`
	Logging       logging.Config    `yaml:"logging"`
	Admin         AdminSettings     `yaml:"admin"`
}

// APISettings controls how the upstream Pokémon API is queried
type APISettings struct {
	BaseURL            string `yaml:"baseURL" env:"POKEFLOW_API_BASE_URL"`
	ListLimit          int    `yaml:"listLimit" env:"POKEFLOW_API_LIST_LIMIT"`
	DisplayCap         int    `yaml:"displayCap" env:"POKEFLOW_API_DISPLAY_CAP"`
	RequestTimeoutSecs int    `yaml:"requestTimeoutSecs" env:"POKEFLOW_API_REQUEST_TIMEOUT_SECS"`
}

// RequestTimeout returns the per-request timeout, zero meaning none
func (a APISettings) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSecs) * time.Second
}

type TransportSettings struct {
	Host             string `yaml:"host" env:"POKEFLOW_HOST"`
	Port             int    `yaml:"port" env:"POKEFLOW_PORT"`
	ReadTimeout      int    `yaml:"readTimeout"`
	WriteTimeout     int    `yaml:"writeTimeout"`
	MaxConnections   int    `yaml:"maxConnections"`
	EnableCORS       bool   `yaml:"enableCORS"`
	SSEHeartbeatSecs int    `yaml:"sseHeartbeatSecs"`
}

// CacheSettings selects the detail cache backend
type CacheSettings struct {
	Type    string `yaml:"type" env:"POKEFLOW_CACHE_TYPE"`
	Path    string `yaml:"path" env:"POKEFLOW_CACHE_PATH"`
	WALMode bool   `yaml:"walMode"`
}

type AdminSettings struct {
	Enabled bool `yaml:"enabled" env:"POKEFLOW_ADMIN_ENABLED"`
	Port    int  `yaml:"port" env:"POKEFLOW_ADMIN_PORT"`
}

// Default returns the settings used when no file is given
func Default() *Settings {
	return &Settings{
		API: APISettings{
			BaseURL:            DefaultBaseURL,
			ListLimit:          100,
			DisplayCap:         30,
			RequestTimeoutSecs: 30,
		},
		TransportType: "http",
		Transport: TransportSettings{
			Host:             "localhost",
			Port:             8080,
			ReadTimeout:      30,
			WriteTimeout:     30,
			MaxConnections:   100,
			EnableCORS:       true,
			SSEHeartbeatSecs: 30,
		},
		Cache: CacheSettings{
			Type:    "none",
			WALMode: true,
		},
		Logging: *logging.DefaultConfig(),
		Admin: AdminSettings{
			Port: 9090,
		},
	}
}

// Validate validates the configuration settings, normalizing case where
// values are case-insensitive
func (s *Settings) Validate() error {
	s.Logging.Level = logging.LogLevel(strings.ToLower(string(s.Logging.Level)))
	if s.Logging.Level == "" {
		s.Logging.Level = logging.LogLevelInfo
	}
	if !logging.IsValidLevel(s.Logging.Level) {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got '%s'", s.Logging.Level)
	}
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	s.TransportType = strings.ToLower(s.TransportType)
	validTransports := map[string]bool{
		"http":  true,
		"sse":   true,
		"stdio": true,
		"":      true, // Empty defaults to http
	}
	if !validTransports[s.TransportType] {
		return fmt.Errorf("transportType must be one of [http, sse, stdio], got '%s'", s.TransportType)
	}
	if s.TransportType == "" {
		s.TransportType = "http"
	}

	s.Cache.Type = strings.ToLower(s.Cache.Type)
	validCaches := map[string]bool{
		"none":   true,
		"memory": true,
		"sqlite": true,
		"":       true, // Empty defaults to none
	}
	if !validCaches[s.Cache.Type] {
		return fmt.Errorf("cache.type must be one of [none, memory, sqlite], got '%s'", s.Cache.Type)
	}
	if s.Cache.Type == "" {
		s.Cache.Type = "none"
	}
	if s.Cache.Type == "sqlite" && strings.TrimSpace(s.Cache.Path) == "" {
		return fmt.Errorf("cache.path cannot be empty when cache.type is sqlite")
	}

	if s.Transport.Port < 0 || s.Transport.Port > 65535 {
		return fmt.Errorf("transport.port must be between 0 and 65535, got %d", s.Transport.Port)
	}
	if s.Admin.Port < 0 || s.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be between 0 and 65535, got %d", s.Admin.Port)
	}

	if s.API.ListLimit < 1 {
		return fmt.Errorf("api.listLimit must be at least 1, got %d", s.API.ListLimit)
	}
	if s.API.DisplayCap < 1 || s.API.DisplayCap > s.API.ListLimit {
		return fmt.Errorf("api.displayCap must be between 1 and api.listLimit (%d), got %d", s.API.ListLimit, s.API.DisplayCap)
	}
	if s.API.RequestTimeoutSecs < 0 {
		return fmt.Errorf("api.requestTimeoutSecs must not be negative, got %d", s.API.RequestTimeoutSecs)
	}

	u, err := url.Parse(s.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.baseURL must be an absolute http(s) URL, got '%s'", s.API.BaseURL)
	}
	s.API.BaseURL = strings.TrimRight(s.API.BaseURL, "/")

	return nil
}

// Load reads settings from a YAML file layered over Default(), applies
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(bytes, settings); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(settings); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ApplyEnv overrides settings from POKEFLOW_* environment variables.
// Unset variables leave the current value in place.
func ApplyEnv(settings *Settings) error {
	if err := env.Parse(settings); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from file into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(file string) error {
	if file == "" {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", file, err)
	}
	return nil
}
