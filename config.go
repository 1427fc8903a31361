package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile         string `yaml:"log"`
	ServerAddr      string `yaml:"server_addr"`
	MCPAddr         string `yaml:"mcp_addr"`
	DataPath        string `yaml:"data_path"`
	DocRoot         string `yaml:"doc_root"`
	Results         int    `yaml:"results"`
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	WatchDebounceMs int    `yaml:"watch_debounce_ms"`

	Index struct {
		Type   string `yaml:"type"` // memory | chroma
		Chroma *struct {
			Addr        string `yaml:"addr"`
			Collection  string `yaml:"collection"`
			RequestSize int    `yaml:"request_size"`
		} `yaml:"chroma"`
	} `yaml:"index"`

	OpenAI *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"open_ai"`
	Gemini *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"gemini"`

	Generator struct {
		Type   string `yaml:"type"` // ollama | openai
		Ollama *struct {
			BaseURL     string `yaml:"base_url"`
			Model       string `yaml:"model"`
			TimeoutSecs int    `yaml:"timeout_secs"`
		} `yaml:"ollama"`
		OpenAI *struct {
			BaseURL     string `yaml:"base_url"`
			Model       string `yaml:"model"`
			ApiKey      string `yaml:"api_key"`
			TimeoutSecs int    `yaml:"timeout_secs"`
		} `yaml:"open_ai"`
	} `yaml:"generator"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	applyDefaults(cfg)
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.Results == 0 {
		cfg.Results = 3
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.WatchDebounceMs == 0 {
		cfg.WatchDebounceMs = 500
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "ollama"
	}
}
