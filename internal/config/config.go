package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the AgentOps server.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	PasswordReset PasswordResetConfig
}

type ServerConfig struct {
	Port         int
	Env          string
	CORSOrigins  []string
	MaxBodyBytes int64
}

// RedisConfig is optional. With an empty URL, rate limit counters are kept in
// process memory.
type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	APIPerMinute    int
	IngestPerSecond int
}

type PasswordResetConfig struct {
	TTL        time.Duration
	BcryptCost int
}

var validEnvs = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
	"test":        true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         envInt("AGENTOPS_PORT", 4000),
			Env:          envString("AGENTOPS_ENV", "development"),
			CORSOrigins:  envList("CORS_ORIGIN", []string{"*"}),
			MaxBodyBytes: int64(envInt("MAX_BODY_BYTES", 1<<20)),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		RateLimit: RateLimitConfig{
			APIPerMinute:    envInt("RATE_LIMIT_API_PER_MIN", 100),
			IngestPerSecond: envInt("RATE_LIMIT_INGEST_PER_SEC", 1000),
		},
		PasswordReset: PasswordResetConfig{
			TTL:        envDuration("PASSWORD_RESET_TTL", time.Hour),
			BcryptCost: envInt("BCRYPT_COST", bcrypt.DefaultCost),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("AGENTOPS_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !validEnvs[c.Server.Env] {
		return fmt.Errorf("AGENTOPS_ENV must be one of development, staging, production, test; got %q", c.Server.Env)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.RateLimit.APIPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_API_PER_MIN must be positive, got %d", c.RateLimit.APIPerMinute)
	}
	if c.RateLimit.IngestPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_INGEST_PER_SEC must be positive, got %d", c.RateLimit.IngestPerSecond)
	}

	if c.PasswordReset.TTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be positive, got %s", c.PasswordReset.TTL)
	}
	if c.PasswordReset.BcryptCost < bcrypt.MinCost || c.PasswordReset.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.PasswordReset.BcryptCost)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, entry := range strings.Split(v, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
