// Package profile holds the runtime configuration for the ragquery
// server, loaded from flags and environment variables.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	Mode    string // "prod" | "dev"
	Addr    string
	Port    int
	Driver  string // "sqlite" | "postgres"
	DSN     string
	Data    string
	Version string

	// Per-provider credentials and endpoint overrides. A model resolves
	// to one of these via its id prefix; only the providers actually
	// selected in a batch need credentials.
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	DeepSeekAPIKey    string
	DeepSeekBaseURL   string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	ZAIAPIKey         string
	ZAIBaseURL        string
	DashScopeAPIKey   string
	DashScopeBaseURL  string

	// OllamaBaseURL points model ids with no known provider prefix at a
	// local inference endpoint.
	OllamaBaseURL string

	// LLM call tuning.
	LLMMaxTokens       int
	LLMTimeout         int // seconds
	DefaultTemperature float32

	// SequentialRPS caps calls per second in sequential mode; zero
	// disables the limiter.
	SequentialRPS float64
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads provider credentials and LLM tuning from environment
// variables.
func (p *Profile) FromEnv() {
	p.OpenAIAPIKey = getEnvOrDefault("RAGQUERY_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.OpenAIBaseURL = getEnvOrDefault("RAGQUERY_OPENAI_BASE_URL", "")
	p.DeepSeekAPIKey = getEnvOrDefault("RAGQUERY_DEEPSEEK_API_KEY", "")
	p.DeepSeekBaseURL = getEnvOrDefault("RAGQUERY_DEEPSEEK_BASE_URL", "")
	p.OpenRouterAPIKey = getEnvOrDefault("RAGQUERY_OPENROUTER_API_KEY", "")
	p.OpenRouterBaseURL = getEnvOrDefault("RAGQUERY_OPENROUTER_BASE_URL", "")
	p.ZAIAPIKey = getEnvOrDefault("RAGQUERY_ZAI_API_KEY", "")
	p.ZAIBaseURL = getEnvOrDefault("RAGQUERY_ZAI_BASE_URL", "")
	p.DashScopeAPIKey = getEnvOrDefault("RAGQUERY_DASHSCOPE_API_KEY", "")
	p.DashScopeBaseURL = getEnvOrDefault("RAGQUERY_DASHSCOPE_BASE_URL", "")
	p.OllamaBaseURL = getEnvOrDefault("RAGQUERY_OLLAMA_BASE_URL", "http://localhost:11434/v1")

	p.LLMMaxTokens = getEnvOrDefaultInt("RAGQUERY_LLM_MAX_TOKENS", 2048)
	p.LLMTimeout = getEnvOrDefaultInt("RAGQUERY_LLM_TIMEOUT_SECONDS", 120)
	p.DefaultTemperature = float32(getEnvOrDefaultFloat("RAGQUERY_LLM_TEMPERATURE", 0.7))
	p.SequentialRPS = getEnvOrDefaultFloat("RAGQUERY_SEQUENTIAL_RPS", 1)
}

// Validate normalizes the profile and fails on unusable settings.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("ragquery_%s.db", p.Mode))
	}

	if p.LLMTimeout <= 0 {
		p.LLMTimeout = 120
	}
	if p.LLMMaxTokens <= 0 {
		p.LLMMaxTokens = 2048
	}

	return nil
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}
