// Package config reads process settings from the environment. A local .env
// file is loaded first when present.
package config

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig drives the Tournament Store API process.
type ServerConfig struct {
	Port           int      `env:"PORT" envDefault:"5200"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	JWTSecret      string   `env:"JWT_SECRET,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
}

// R2Config is optional; archiving is disabled unless every field is set.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	Prefix          string `env:"R2_REPORT_PREFIX" envDefault:"scheduler/generation"`
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// SchedulerConfig drives the orchestrator process.
type SchedulerConfig struct {
	TournamentServiceURL string `env:"TOURNAMENT_SERVICE_URL" envDefault:"http://localhost:5200"`
	AuthServiceURL       string `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:5100"`
	Username             string `env:"SCHEDULER_USERNAME,required,notEmpty"`
	Password             string `env:"SCHEDULER_PASSWORD,required,notEmpty"`

	GenerationIntervalMinutes  int `env:"GENERATION_INTERVAL_MINUTES" envDefault:"30"`
	AdvancementIntervalMinutes int `env:"ADVANCEMENT_INTERVAL_MINUTES" envDefault:"5"`
	HealthIntervalMinutes      int `env:"HEALTH_INTERVAL_MINUTES" envDefault:"10"`

	TournamentDuration time.Duration `env:"TOURNAMENT_DURATION" envDefault:"2h"`
	RegistrationLead   time.Duration `env:"REGISTRATION_LEAD" envDefault:"10m"`
	CheckInLead        time.Duration `env:"CHECK_IN_LEAD" envDefault:"5m"`

	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"10"`
	GenerationWorkers int           `env:"GENERATION_WORKERS" envDefault:"4"`

	RedisURL string `env:"REDIS_URL"`
	R2       R2Config
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *SchedulerConfig) GenerationInterval() time.Duration {
	return time.Duration(c.GenerationIntervalMinutes) * time.Minute
}

func (c *SchedulerConfig) AdvancementInterval() time.Duration {
	return time.Duration(c.AdvancementIntervalMinutes) * time.Minute
}

func (c *SchedulerConfig) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMinutes) * time.Minute
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
}

// LoadServer reads ServerConfig.
func LoadServer() (*ServerConfig, error) {
	loadDotEnv()
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	return cfg, nil
}

// LoadScheduler reads SchedulerConfig and checks the timing relationships
// generated tournaments depend on.
func LoadScheduler() (*SchedulerConfig, error) {
	loadDotEnv()
	cfg := &SchedulerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SchedulerConfig) validate() error {
	for name, raw := range map[string]string{
		"TOURNAMENT_SERVICE_URL": c.TournamentServiceURL,
		"AUTH_SERVICE_URL":       c.AuthServiceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.GenerationIntervalMinutes <= 0 || c.AdvancementIntervalMinutes <= 0 || c.HealthIntervalMinutes <= 0 {
		return fmt.Errorf("task intervals must be positive")
	}
	if c.TournamentDuration <= 0 {
		return fmt.Errorf("TOURNAMENT_DURATION must be positive")
	}
	if c.CheckInLead <= 0 || c.RegistrationLead <= c.CheckInLead {
		return fmt.Errorf("REGISTRATION_LEAD (%s) must exceed CHECK_IN_LEAD (%s) and both must be positive",
			c.RegistrationLead, c.CheckInLead)
	}
	// The slot starts just over one interval ahead, so a longer lead would
	// create tournaments whose registration has already closed.
	if c.RegistrationLead >= c.GenerationInterval() {
		return fmt.Errorf("REGISTRATION_LEAD (%s) must be shorter than the generation interval (%s)",
			c.RegistrationLead, c.GenerationInterval())
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("REQUESTS_PER_SECOND must be positive")
	}
	if c.GenerationWorkers <= 0 {
		c.GenerationWorkers = 1
	}
	return nil
}
