package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	WebSocket struct {
		Port            int      `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		SendBuffer      int      `yaml:"send_buffer"`
		MaxMessageChars int      `yaml:"max_message_chars"`
		OutboxSize      int      `yaml:"outbox_size"`
	} `yaml:"websocket"`
	Services struct {
		AdminServicePort int `yaml:"admin_service"`
	} `yaml:"services"`
	Motion struct {
		SampleIntervalMs int     `yaml:"sample_interval_ms"`
		ThresholdMps     float64 `yaml:"threshold_mps"`
		GraceMs          int     `yaml:"grace_ms"`
		GeohashPrecision int     `yaml:"geohash_precision"`
	} `yaml:"motion"`
	Logger struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"logger"`
	Rider struct {
		GatewayURL string `yaml:"gateway_url"`
		Nickname   string `yaml:"nickname"`
	} `yaml:"rider"`
}

// Section names a part of the config a mode depends on. Only the
// requested sections are validated, so the rider does not need
// database credentials.
type Section string

const (
	SectionDatabase  Section = "database"
	SectionRabbitMQ  Section = "rabbitmq"
	SectionRedis     Section = "redis"
	SectionWebSocket Section = "websocket"
	SectionServices  Section = "services"
	SectionMotion    Section = "motion"
	SectionRider     Section = "rider"
)

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates the required sections.
func LoadFromFile(path string, required ...Section) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(required...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// WebSocket
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = 4000
	}
	if cfg.WebSocket.SendBuffer == 0 {
		cfg.WebSocket.SendBuffer = 64
	}
	if cfg.WebSocket.MaxMessageChars == 0 {
		cfg.WebSocket.MaxMessageChars = 1000
	}
	if cfg.WebSocket.OutboxSize == 0 {
		cfg.WebSocket.OutboxSize = 256
	}

	// Services
	if cfg.Services.AdminServicePort == 0 {
		cfg.Services.AdminServicePort = 3004
	}

	// Motion
	if cfg.Motion.SampleIntervalMs == 0 {
		cfg.Motion.SampleIntervalMs = 1000
	}
	if cfg.Motion.ThresholdMps == 0 {
		cfg.Motion.ThresholdMps = 2.0
	}
	if cfg.Motion.GraceMs == 0 {
		cfg.Motion.GraceMs = 30_000
	}
	if cfg.Motion.GeohashPrecision == 0 {
		cfg.Motion.GeohashPrecision = 8
	}

	// Logger
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Encoding == "" {
		cfg.Logger.Encoding = "json"
	}

	// Rider
	if cfg.Rider.GatewayURL == "" {
		cfg.Rider.GatewayURL = fmt.Sprintf("ws://localhost:%d/ws", cfg.WebSocket.Port)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate(required ...Section) error {
	var problems []string

	for _, s := range required {
		switch s {
		case SectionDatabase:
			if !validPort(c.Database.Port) {
				problems = append(problems, "database.port must be in 1..65535")
			}
			if c.Database.User == "" {
				problems = append(problems, "database.user is required")
			}
			if c.Database.Password == "" {
				problems = append(problems, "database.password is required")
			}
			if c.Database.Name == "" {
				problems = append(problems, "database.database is required")
			}

		case SectionRabbitMQ:
			if !c.RabbitMQ.Enabled {
				continue
			}
			if !validPort(c.RabbitMQ.Port) {
				problems = append(problems, "rabbitmq.port must be in 1..65535")
			}
			if c.RabbitMQ.User == "" {
				problems = append(problems, "rabbitmq.user is required")
			}
			if c.RabbitMQ.Password == "" {
				problems = append(problems, "rabbitmq.password is required")
			}

		case SectionRedis:
			if strings.TrimSpace(c.Redis.Addr) == "" {
				problems = append(problems, "redis.addr is required")
			}
			if c.Redis.DB < 0 {
				problems = append(problems, "redis.db cannot be negative")
			}

		case SectionWebSocket:
			if !validPort(c.WebSocket.Port) {
				problems = append(problems, "websocket.port must be in 1..65535")
			}
			if c.WebSocket.SendBuffer < 1 {
				problems = append(problems, "websocket.send_buffer must be >= 1")
			}
			if c.WebSocket.MaxMessageChars < 1 {
				problems = append(problems, "websocket.max_message_chars must be >= 1")
			}
			if c.WebSocket.OutboxSize < 1 {
				problems = append(problems, "websocket.outbox_size must be >= 1")
			}

		case SectionServices:
			if !validPort(c.Services.AdminServicePort) {
				problems = append(problems, "services.admin_service must be in 1..65535")
			}

		case SectionMotion:
			if c.Motion.SampleIntervalMs <= 0 {
				problems = append(problems, "motion.sample_interval_ms must be > 0")
			}
			if c.Motion.ThresholdMps <= 0 {
				problems = append(problems, "motion.threshold_mps must be > 0")
			}
			if c.Motion.GraceMs < 0 {
				problems = append(problems, "motion.grace_ms cannot be negative")
			}
			if c.Motion.GeohashPrecision < 1 || c.Motion.GeohashPrecision > 12 {
				problems = append(problems, "motion.geohash_precision must be in 1..12")
			}

		case SectionRider:
			u := c.Rider.GatewayURL
			if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
				problems = append(problems, "rider.gateway_url must start with ws:// or wss://")
			}

		default:
			problems = append(problems, fmt.Sprintf("unknown config section %q", s))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
