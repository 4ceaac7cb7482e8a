package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment     string                `mapstructure:"environment"`
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Gemini          GeminiConfig          `mapstructure:"gemini"`
	Generation      GenerationConfig      `mapstructure:"generation"`
	Transcript      TranscriptConfig      `mapstructure:"transcript"`
	TranscriptCache TranscriptCacheConfig `mapstructure:"transcript_cache"`
	RateLimiting    RateLimitConfig       `mapstructure:"rate_limiting"`
	Security        SecurityConfig        `mapstructure:"security"`
	Logging         LoggingConfig         `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"` // 0 keeps event streams open
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path                  string        `mapstructure:"path"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	EnableWAL             bool          `mapstructure:"enable_wal"`
	LogQueries            bool          `mapstructure:"log_queries"`
}

// GeminiConfig contains Google Gemini settings
type GeminiConfig struct {
	APIKey      string            `mapstructure:"api_key"`
	Model       string            `mapstructure:"model"`
	Temperature float64           `mapstructure:"temperature"`
	Profiles    map[string]string `mapstructure:"profiles"` // intent -> model
}

// GenerationConfig contains orchestrator settings
type GenerationConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"` // 0 disables the deadline
	PromptsFile  string        `mapstructure:"prompts_file"`
	StreamBuffer int           `mapstructure:"stream_buffer"`
}

// TranscriptConfig contains transcript source settings
type TranscriptConfig struct {
	URLTemplate string        `mapstructure:"url_template"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxSize     int64         `mapstructure:"max_size"`
}

// TranscriptCacheConfig contains transcript cache settings
type TranscriptCacheConfig struct {
	TTLMs int64 `mapstructure:"ttl_ms"`
}

// TTL converts the millisecond setting to a duration
func (c TranscriptCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

// RateLimitConfig contains rate limiting settings (requests per minute)
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	CORSMethods    []string `mapstructure:"cors_methods"`
	CORSHeaders    []string `mapstructure:"cors_headers"`
	EnableRecovery bool     `mapstructure:"enable_recovery"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
