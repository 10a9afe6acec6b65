package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/user/artifactchat/internal/render"
)

// Config is the on-disk configuration. Conversation state is never stored
// here; it lives for the life of the process.
type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	Provider      string `json:"provider"`
	PendingPolicy string `json:"pending_policy"`
	MaxToolRounds int    `json:"max_tool_rounds"`
	SeedWelcome   bool   `json:"seed_welcome"`
	Stub          struct {
		LatencyMS       int     `json:"latency_ms"`
		ToolProbability float64 `json:"tool_probability"`
	} `json:"stub"`
	LLM struct {
		BaseURL          string  `json:"base_url"`
		APIKey           string  `json:"api_key"`
		Model            string  `json:"model"`
		MaxTokens        int     `json:"max_tokens"`
		Temperature      float32 `json:"temperature"`
		MaxContextTokens int     `json:"max_context_tokens"`
		OutputReserve    int     `json:"output_reserve"`
	} `json:"llm"`
	Brave struct {
		APIKey string `json:"api_key"`
	} `json:"brave"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Settings render.Settings `json:"settings"`
}

// DefaultPath returns ~/.artifactchat/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".artifactchat", "config.json")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".artifactchat"),
		LogLevel:      "info",
		Provider:      "stub",
		PendingPolicy: "queue",
		MaxToolRounds: 10,
		SeedWelcome:   true,
		Settings:      render.DefaultSettings(),
	}
	cfg.Stub.LatencyMS = 1500
	cfg.Stub.ToolProbability = 0.3
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxContextTokens = 128000
	cfg.LLM.OutputReserve = 4096
	cfg.HTTP.Listen = "127.0.0.1:8484"
	return cfg
}

// Load reads path over the defaults, writing the defaults first if the file
// does not exist. A .env file in the working directory and the process
// environment override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load(".env")
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		cfg.Brave.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns every key of cfg flattened to dot form, with secrets
// masked when mask is set.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads path and returns the value stored under a dot key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return nil, err
	}
	if v, ok := flat[key]; ok {
		return v, nil
	}

	// Keys set by hand that the struct does not know about.
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	if v, ok := Flatten(raw)[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown config key: %s", key)
}

// SetValue stores value under a dot key in the existing file at path.
// Values that parse as JSON (numbers, booleans) keep their type; anything
// else is stored as a string.
func SetValue(path, key, value string) error {
	raw, err := readRaw(path)
	if err != nil {
		return err
	}
	flat := Flatten(raw)

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil || isComposite(parsed) {
		parsed = value
	}
	flat[key] = parsed

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	raw := make(map[string]any)
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}

func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
