package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Token is shared by the chat gateway, the tool server, and the task
	// backend; it doubles as the storage owner on the backend side.
	Token string `yaml:"token"`

	Chat       ChatConfig       `yaml:"chat"`
	ToolServer ToolServerConfig `yaml:"toolserver"`
	Backend    BackendConfig    `yaml:"backend"`
	OpenAI     OpenAIConfig     `yaml:"openai"`

	ConfigPath string `yaml:"-"`
	PrintToken bool   `yaml:"-"`
}

type ChatConfig struct {
	Port int `yaml:"port"`
}

type ToolServerConfig struct {
	Port int    `yaml:"port"`
	URL  string `yaml:"url"`
}

type BackendConfig struct {
	Port   int    `yaml:"port"`
	URL    string `yaml:"url"`
	DBPath string `yaml:"db_path"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Load resolves configuration in precedence order: defaults, config file,
// environment, flags. A missing config file is not an error; a missing
// token is generated and persisted so restarts keep existing sessions valid.
func Load() (*Config, error) {
	cfg := defaults()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	cfg.ConfigPath = filepath.Join(homeDir, ".config", "taskchat", "config.yaml")
	if path := os.Getenv("TASKCHAT_CONFIG"); path != "" {
		cfg.ConfigPath = path
	}
	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.applyEnv()
	if cfg.Backend.DBPath == "" {
		cfg.Backend.DBPath = filepath.Join(homeDir, ".local", "share", "taskchat", "tasks.db")
	}

	flag.IntVar(&cfg.Chat.Port, "chat-port", cfg.Chat.Port, "chat gateway port (1-65535)")
	flag.IntVar(&cfg.ToolServer.Port, "toolserver-port", cfg.ToolServer.Port, "tool server port (1-65535)")
	flag.IntVar(&cfg.Backend.Port, "backend-port", cfg.Backend.Port, "task backend port (1-65535)")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "authentication token (auto-generated if empty)")
	flag.BoolVar(&cfg.PrintToken, "print-token", false, "print token to stdout (for local debugging)")
	flag.Parse()

	for _, port := range []int{cfg.Chat.Port, cfg.ToolServer.Port, cfg.Backend.Port} {
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
		}
	}

	if cfg.ToolServer.URL == "" {
		cfg.ToolServer.URL = fmt.Sprintf("http://localhost:%d", cfg.ToolServer.Port)
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = fmt.Sprintf("http://localhost:%d", cfg.Backend.Port)
	}

	if cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		cfg.Token = token
		if err := cfg.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Chat:       ChatConfig{Port: 8080},
		ToolServer: ToolServerConfig{Port: 3001},
		Backend:    BackendConfig{Port: 8000},
		OpenAI: OpenAIConfig{
			Model:   "openai/gpt-3.5-turbo",
			BaseURL: "https://openrouter.ai/api/v1",
		},
	}
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config file %q: %w", c.ConfigPath, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("TASKCHAT_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("TASKCHAT_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("TASKCHAT_TOOLSERVER_URL"); v != "" {
		c.ToolServer.URL = v
	}
	if v := os.Getenv("TASKCHAT_DB_PATH"); v != "" {
		c.Backend.DBPath = v
	}
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(c.ConfigPath, data, 0600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
