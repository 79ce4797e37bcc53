package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the relay service.
type Config struct {
	BasicConfig BasicConfig  `json:"basic_config"`
	Ollama      OllamaConfig `json:"ollama"`
	Redis       *RedisConfig `json:"redis,omitempty"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	HistoryTTLMinutes int    `json:"history_ttl_minutes"`
}

type OllamaConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Load reads configuration from the provided path (defaults to
// config.json). A missing default file yields the built-in defaults so
// the relay can run against a local Ollama without any config file.
func Load(path string) (*Config, error) {
	defaulted := path == ""
	if defaulted {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := &Config{}
	file, err := os.Open(absPath)
	if err != nil {
		if defaulted && os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":5000"
	}
	if c.BasicConfig.HistoryTTLMinutes <= 0 {
		c.BasicConfig.HistoryTTLMinutes = 30
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "mistral"
	}
}
