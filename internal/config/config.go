package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Gemini   Gemini   `mapstructure:"gemini"`
	Telegram Telegram `mapstructure:"telegram"`
	Crawl    Crawl    `mapstructure:"crawl"`
	Finance  Finance  `mapstructure:"finance"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
	UserID  string `mapstructure:"user_id"` // Watchlist owner the pipeline alerts for
}

// Gemini holds Google Gemini configuration
type Gemini struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout string `mapstructure:"timeout"`
}

// Telegram holds Telegram bot configuration
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Timeout  string `mapstructure:"timeout"`
}

// Crawl holds news crawling configuration
type Crawl struct {
	UserAgent  string `mapstructure:"user_agent"`
	Timeout    string `mapstructure:"timeout"`
	FetchDelay string `mapstructure:"fetch_delay"` // Pause between article ingests
}

// Finance holds the stock metrics API configuration
type Finance struct {
	APIURL  string   `mapstructure:"api_url"`
	Timeout string   `mapstructure:"timeout"`
	Symbols []string `mapstructure:"symbols"` // Symbols to crawl when the API returns everything
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".stockwatch")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".stockwatch-data")
	viper.SetDefault("app.user_id", "ong_x")

	// Gemini defaults
	viper.SetDefault("gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("gemini.timeout", "60s")

	// Telegram defaults
	viper.SetDefault("telegram.timeout", "30s")

	// Crawl defaults
	viper.SetDefault("crawl.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("crawl.timeout", "30s")
	viper.SetDefault("crawl.fetch_delay", "2s")

	// Finance defaults
	viper.SetDefault("finance.timeout", "30s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// Telegram bot credentials
	bindEnvKeys("telegram.bot_token", []string{
		"TELEGRAM_BOT_TOKEN",
		"TELEGRAM_TOKEN",
	})

	bindEnvKeys("telegram.chat_id", []string{
		"TELEGRAM_CHAT_ID",
	})

	// Stock metrics API
	bindEnvKeys("finance.api_url", []string{
		"FINANCE_API_URL",
		"STOCK_METRICS_API_URL",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"STOCKWATCH_DEBUG",
	})

	bindEnvKeys("app.user_id", []string{
		"STOCKWATCH_USER_ID",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}

	// Validate durations
	durations := map[string]string{
		"gemini.timeout":    config.Gemini.Timeout,
		"telegram.timeout":  config.Telegram.Timeout,
		"crawl.timeout":     config.Crawl.Timeout,
		"crawl.fetch_delay": config.Crawl.FetchDelay,
		"finance.timeout":   config.Finance.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	// Telegram credentials come as a pair
	if (config.Telegram.BotToken == "") != (config.Telegram.ChatID == "") {
		errors = append(errors, "Telegram requires both bot token and chat ID. Set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	if config.App.UserID == "" {
		errors = append(errors, "Watchlist user ID must not be empty. Set app.user_id in config file")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App           { return Get().App }
func GetGemini() Gemini     { return Get().Gemini }
func GetTelegram() Telegram { return Get().Telegram }
func GetCrawl() Crawl       { return Get().Crawl }
func GetFinance() Finance   { return Get().Finance }
func GetLogging() Logging   { return Get().Logging }

// Specific convenience getters for frequently accessed values
func GetGeminiAPIKey() string { return Get().Gemini.APIKey }
func GetGeminiModel() string  { return Get().Gemini.Model }
func GetDataDir() string      { return Get().App.DataDir }
func GetUserID() string       { return Get().App.UserID }
func IsDebugMode() bool       { return Get().App.Debug }

// GetGeminiTimeout returns the Gemini call timeout as a duration, falling
// back to 60 seconds when unset.
func GetGeminiTimeout() time.Duration {
	return durationOr(Get().Gemini.Timeout, 60*time.Second)
}

// GetFetchDelay returns the pause between article ingests during a crawl.
func GetFetchDelay() time.Duration {
	return durationOr(Get().Crawl.FetchDelay, 2*time.Second)
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// HasTelegram returns true if Telegram notifications are configured.
func HasTelegram() bool {
	t := Get().Telegram
	return t.BotToken != "" && t.ChatID != ""
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
