package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	AI       AI       `mapstructure:"ai"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AdminToken   string        `mapstructure:"admin_token"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds Postgres connection configuration
type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AI holds AI provider configuration
type AI struct {
	Timeout       time.Duration    `mapstructure:"timeout"`
	ProbeInterval time.Duration    `mapstructure:"probe_interval"`
	CandidateSize int              `mapstructure:"candidate_size"`
	Groq          GroqConfig       `mapstructure:"groq"`
	OpenRouter    OpenRouterConfig `mapstructure:"openrouter"`
	Gemini        GeminiConfig     `mapstructure:"gemini"`
}

// GroqConfig holds Groq chat-completions configuration
type GroqConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenRouterConfig holds OpenRouter chat-completions configuration
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds the embedding provider configuration
type GeminiConfig struct {
	APIKey              string `mapstructure:"api_key"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int32  `mapstructure:"embedding_dimensions"`
}

// Load reads configuration from file, environment variables, and defaults.
// Precedence: env vars > config file > defaults.
func Load(configFile string) (*Config, error) {
	// Load .env file if present (ignore error if missing)
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("SUGGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("suggest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/suggest")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.cors.enabled", false)

	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.probe_interval", "5m")
	viper.SetDefault("ai.candidate_size", 200)
	viper.SetDefault("ai.groq.model", "llama-3.1-8b-instant")
	viper.SetDefault("ai.groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("ai.openrouter.model", "deepseek/deepseek-chat-v3.1:free")
	viper.SetDefault("ai.openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai.gemini.embedding_model", "text-embedding-004")
	viper.SetDefault("ai.gemini.embedding_dimensions", 768)
}

// bindEnvironmentVariables supports the conventional unprefixed key names in
// addition to the SUGGEST_ prefixed ones.
func bindEnvironmentVariables() {
	bindEnvKeys("ai.groq.api_key", []string{"GROQ_API_KEY"})
	bindEnvKeys("ai.openrouter.api_key", []string{"OPENROUTER_API_KEY"})
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
	bindEnvKeys("database.url", []string{"DATABASE_URL"})
	bindEnvKeys("server.admin_token", []string{"ADMIN_TOKEN"})
}

func bindEnvKeys(configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		_ = viper.BindEnv(configKey, envKey)
	}
}

func validate(c *Config) error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}
	if c.AI.CandidateSize <= 0 {
		return fmt.Errorf("ai.candidate_size must be positive")
	}
	return nil
}
