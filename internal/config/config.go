package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Auth       AuthConfig       `json:"auth"`
	Settlement SettlementConfig `json:"settlement"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password"`
	DBName       string `json:"db_name"`
	SSLMode      string `json:"ssl_mode"`
	MaxConns     int    `json:"max_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// AuthConfig holds the JWT settings for the actor/session boundary.
type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// ShipmentPricing selects which rate a factory shipment is billed at.
type ShipmentPricing string

const (
	// PricingCurrent bills at the per-ton rate in effect when the factory
	// verifies the drop.
	PricingCurrent ShipmentPricing = "current"
	// PricingLocked bills at the rate in effect when the drop was
	// authenticated, derived from the per-kg snapshot on the token.
	PricingLocked ShipmentPricing = "locked"
)

// SettlementConfig holds the settlement subsystem knobs. ShipmentPricing is
// deliberately a configuration choice: whether factory billing floats with
// market rates or locks to the authentication-time rate is a business
// decision, not something the code should assume.
type SettlementConfig struct {
	ShipmentPricing  ShipmentPricing `json:"shipment_pricing"`
	DefaultWindow    time.Duration   `json:"default_window"`
	PageLimit        int             `json:"page_limit"`
	PaymentDueWindow time.Duration   `json:"payment_due_window"`
	StuckTokenAge    time.Duration   `json:"stuck_token_age"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "waste_portal",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Settlement: SettlementConfig{
			ShipmentPricing:  PricingCurrent,
			DefaultWindow:    24 * time.Hour,
			PageLimit:        120,
			PaymentDueWindow: 14 * 24 * time.Hour,
			StuckTokenAge:    72 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if config.Settlement.ShipmentPricing != PricingCurrent && config.Settlement.ShipmentPricing != PricingLocked {
		return nil, fmt.Errorf("invalid settlement.shipment_pricing %q", config.Settlement.ShipmentPricing)
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if pricing := os.Getenv("SHIPMENT_PRICING"); pricing != "" {
		config.Settlement.ShipmentPricing = ShipmentPricing(pricing)
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
