package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration. Sources, lowest to highest
// precedence: built-in defaults, an optional YAML file, environment
// variables (a .env file is folded into the environment first).
type Config struct {
	// Server
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"` // uploaded tracks and generated backgrounds

	// Lyric sync
	SyncOffset float64 `yaml:"sync_offset"` // default user offset, seconds

	// Ollama lyric generation (optional)
	OllamaURL           string `yaml:"ollama_url"`
	OllamaModel         string `yaml:"ollama_model"`
	OllamaEscalateModel string `yaml:"ollama_escalate_model"` // retry target on invalid output

	// Background image generation (optional)
	ImageAPIURL string `yaml:"image_api_url"`
	ImageAPIKey string `yaml:"image_api_key"`
}

// Load reads configuration with sane defaults.
func Load() Config {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	cfg := Config{
		Port:                8080,
		DataDir:             "./data",
		SyncOffset:          -0.3,
		OllamaModel:         "qwen3:8b",
		OllamaEscalateModel: "qwen3:32b",
	}

	path := envStr("KARA_CONFIG", "kara.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("Config file %s: %v (ignored)", path, err)
		}
	}

	cfg.Port = envInt("KARA_PORT", cfg.Port)
	cfg.DataDir = envStr("KARA_DATA_DIR", cfg.DataDir)
	cfg.SyncOffset = envFloat("KARA_SYNC_OFFSET", cfg.SyncOffset)
	cfg.OllamaURL = envStr("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = envStr("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.OllamaEscalateModel = envStr("OLLAMA_ESCALATE_MODEL", cfg.OllamaEscalateModel)
	cfg.ImageAPIURL = envStr("IMAGE_API_URL", cfg.ImageAPIURL)
	cfg.ImageAPIKey = envStr("IMAGE_API_KEY", cfg.ImageAPIKey)

	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
