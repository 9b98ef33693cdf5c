// Package config reads the process configuration from the environment,
// loading a .env file first when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MetricsPort string

	Store             string // "mongo" or "memory"
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisAddr     string
	RedisPassword string

	JWTSecret    []byte
	TicketSecret []byte

	RatesURL string
	RatesTTL time.Duration

	AllowedOrigins []string
}

// Load reads .env (if any) and the environment. Missing optional values get
// defaults; a missing JWT secret is an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{
		Port:           addr(getenv("PORT", "8080")),
		MetricsPort:    addr(getenv("METRICS_PORT", "9090")),
		Store:          strings.ToLower(getenv("STORE", "mongo")),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "tripgenie"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		TicketSecret:   []byte(os.Getenv("TICKET_SECRET")),
		RatesURL:       os.Getenv("RATES_URL"),
		AllowedOrigins: strings.Split(getenv("CORS_ORIGINS", "*"), ","),
	}

	var err error
	if c.MongoTransactions, err = parseBool("MONGO_TRANSACTIONS"); err != nil {
		return c, err
	}
	if c.RatesTTL, err = time.ParseDuration(getenv("RATES_TTL", "1h")); err != nil {
		return c, fmt.Errorf("RATES_TTL: %w", err)
	}
	if c.Store != "mongo" && c.Store != "memory" {
		return c, fmt.Errorf("STORE must be mongo or memory, got %q", c.Store)
	}
	if len(c.JWTSecret) == 0 {
		return c, fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.TicketSecret) == 0 {
		c.TicketSecret = c.JWTSecret
	}
	return c, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// addr turns "8080" into ":8080" and leaves "host:8080" alone.
func addr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
