package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COURSE_TRANSCRIPT_CACHE_TTL_MS
const EnvPrefix = "COURSE"

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = load("./config/settings.yaml")
	})

	return initErr
}

// load builds the configuration from defaults, an optional .env file,
// environment variables and an optional YAML file
func load(configPath string) error {
	// Set default values
	setDefaults()

	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	// Set up environment variable reading for overrides
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Load config from fixed location (cleaned for safety)
	configPath = filepath.Clean(configPath)
	viper.SetConfigFile(configPath)

	// Try to read the config file
	if err := viper.ReadInConfig(); err != nil {
		// If the config file doesn't exist, just use defaults and env vars
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	// Validate the configuration
	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// TranscriptCacheTTL returns the configured transcript cache TTL
func TranscriptCacheTTL() time.Duration {
	return time.Duration(viper.GetInt64("transcript_cache.ttl_ms")) * time.Millisecond
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetInt64("transcript_cache.ttl_ms") < 0 {
		return fmt.Errorf("invalid transcript_cache.ttl_ms: must not be negative")
	}

	if viper.GetDuration("generation.timeout") < 0 {
		return fmt.Errorf("invalid generation.timeout: must not be negative")
	}

	if viper.GetString("database.path") == "" {
		// The session log is optional
		fmt.Println("Warning: No database path configured, generation sessions will not be recorded")
	}

	if viper.GetString("transcript.url_template") == "" {
		fmt.Println("Warning: No transcript.url_template configured, requests must carry their own transcript")
	}

	// Validate API keys aren't using placeholder values
	if err := validateAPIKeys(); err != nil {
		return err
	}

	// Auto-correct invalid stream buffer
	if viper.GetInt("generation.stream_buffer") < 0 {
		viper.Set("generation.stream_buffer", 0)
	}

	return nil
}

// validateAPIKeys validates that API keys are not using placeholder values
func validateAPIKeys() error {
	// Check for production environment
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	// List of placeholder values that shouldn't be used
	placeholders := []string{
		"YOUR_KEY_HERE",
		"YOUR_API_KEY",
		"changeme",
		"CHANGEME",
		"",
	}

	geminiKey := viper.GetString("gemini.api_key")
	for _, placeholder := range placeholders {
		if geminiKey == placeholder {
			if isProduction {
				return fmt.Errorf("invalid Gemini API key: cannot use placeholder values in production")
			}
			fmt.Println("Warning: Gemini API key is not configured, generation will fail")
			break
		}
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.TranscriptCache.TTLMs < 0 {
		return fmt.Errorf("invalid transcript_cache.ttl_ms: %d", c.TranscriptCache.TTLMs)
	}

	if c.Generation.Timeout < 0 {
		return fmt.Errorf("invalid generation.timeout: %s", c.Generation.Timeout)
	}

	if c.Generation.StreamBuffer < 0 {
		c.Generation.StreamBuffer = 0
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 0)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/course.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.enable_wal", true)
	viper.SetDefault("database.log_queries", false)

	// Gemini defaults
	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.temperature", 0)
	viper.SetDefault("gemini.profiles", map[string]string{})

	// Generation defaults
	viper.SetDefault("generation.timeout", 5*time.Minute)
	viper.SetDefault("generation.prompts_file", "")
	viper.SetDefault("generation.stream_buffer", 8)

	// Transcript defaults
	viper.SetDefault("transcript.url_template", "")
	viper.SetDefault("transcript.timeout", 30*time.Second)
	viper.SetDefault("transcript.user_agent", "CourseAPI/1.0")
	viper.SetDefault("transcript.max_size", 10485760)

	// Transcript cache defaults
	viper.SetDefault("transcript_cache.ttl_ms", 15*60*1000)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"generate": 10,
		"default":  120,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization", "Last-Event-ID"})
	viper.SetDefault("security.enable_recovery", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}
