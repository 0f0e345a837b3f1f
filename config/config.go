package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const AvatarSize = 240

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	FEOrigins []string

	DBUser string
	DBPass string
	DBHost string
	DBName string
}

// Load reads the environment (optionally seeded from a .env file) into a Config.
func Load() (*Config, error) {
	// missing .env is fine: production supplies real env vars
	_ = godotenv.Load()

	conf := &Config{
		Port:      os.Getenv("PORT"),
		GinMode:   os.Getenv("GIN_MODE"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		FEOrigins: strings.Split(os.Getenv("FE_ORIGINS"), ";"),
		DBUser:    os.Getenv("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    os.Getenv("DB_HOST"),
		DBName:    os.Getenv("DB_NAME"),
	}
	if conf.Port == "" {
		return nil, fmt.Errorf("$PORT must be set")
	}
	if conf.DBHost == "" {
		return nil, fmt.Errorf("$DB_HOST must be set")
	}
	if conf.DBName == "" {
		conf.DBName = "quillhub"
	}
	return conf, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?tls=true&parseTime=true",
		c.DBUser, c.DBPass, c.DBHost, c.DBName)
}
