package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ServerConfig configures the proxy server. Values come from an optional
// YAML file, a .env file, and the process environment, in that order.
type ServerConfig struct {
	Port        int    `yaml:"port" env:"PORT" env-default:"3000"`
	APIKey      string `yaml:"api_key" env:"GEMINI_API_KEY"`
	UpstreamURL string `yaml:"upstream_url" env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	ImageModel  string `yaml:"image_model" env:"GEMCHAT_IMAGE_MODEL" env-default:"gemini-2.0-flash-exp"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	EnableCORS  bool   `yaml:"enable_cors" env:"ENABLE_CORS" env-default:"true"`
}

// LoadServer loads the server configuration. cfgPath may be empty; a
// .env file in the working directory is honored when present.
func LoadServer(cfgPath string) (*ServerConfig, error) {
	// Missing .env is fine; explicit config errors are not.
	_ = godotenv.Load()

	var cfg ServerConfig
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read server config %s: %w", cfgPath, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read server env: %w", err)
		}
	}

	if cfg.APIKey == "" {
		// Mirror the legacy variable name as a fallback.
		cfg.APIKey = os.Getenv("VITE_GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	return &cfg, nil
}
