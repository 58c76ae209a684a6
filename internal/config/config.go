package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port int

	DBUsername string
	DBPassword string
	DBHost     string
	DBPort     string
	DBDatabase string
	DBSchema   string

	Currency string

	// RequirePaidToComplete gates the transition into the completed order
	// status on the order being fully paid. Cash-on-delivery shops that
	// reconcile payment after delivery can turn it off.
	RequirePaidToComplete bool

	// Reconciliation of payments stuck in PENDING against the provider.
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

func Default() Config {
	return Config{
		Port:                  8080,
		DBUsername:            "postgres",
		DBPassword:            "postgres",
		DBHost:                "localhost",
		DBPort:                "5432",
		DBDatabase:            "commerce",
		DBSchema:              "public",
		Currency:              "USD",
		RequirePaidToComplete: true,
		ReconcileEnabled:      false,
		ReconcileInterval:     30 * time.Second,
		ReconcileAfter:        5 * time.Minute,
	}
}

func Load() Config {
	c := Default()
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("BLUEPRINT_DB_USERNAME"); v != "" {
		c.DBUsername = v
	}
	if v := os.Getenv("BLUEPRINT_DB_PASSWORD"); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv("BLUEPRINT_DB_HOST"); v != "" {
		c.DBHost = v
	}
	if v := os.Getenv("BLUEPRINT_DB_PORT"); v != "" {
		c.DBPort = v
	}
	if v := os.Getenv("BLUEPRINT_DB_DATABASE"); v != "" {
		c.DBDatabase = v
	}
	if v := os.Getenv("BLUEPRINT_DB_SCHEMA"); v != "" {
		c.DBSchema = v
	}
	if v := os.Getenv("ORDER_CURRENCY"); v != "" {
		c.Currency = v
	}
	if v := os.Getenv("ORDER_REQUIRE_PAID_TO_COMPLETE"); v != "" {
		c.RequirePaidToComplete = v == "1" || v == "true" || v == "TRUE"
	}
	if v := os.Getenv("PAYMENT_RECONCILE_ENABLED"); v != "" {
		c.ReconcileEnabled = v == "1" || v == "true" || v == "TRUE"
	}
	if v := os.Getenv("PAYMENT_RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReconcileInterval = d
		}
	}
	if v := os.Getenv("PAYMENT_RECONCILE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReconcileAfter = d
		}
	}
	return c
}

func (c Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBSchema,
	)
}
