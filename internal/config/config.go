package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	// Token settings
	JWTSecret             string
	RefreshJWTSecret      string
	AccessTokenTTLMinutes string // minutes
	RefreshTokenTTLDays   string // days
	// Initial admin seed
	AdminEmail    string
	AdminPassword string
	AdminFullName string
	// Risk engine thresholds
	RiskMediumThreshold   int
	RiskHighThreshold     int
	RiskCriticalThreshold int
	AlertRefire           bool
	// Lockdown policy
	PolicyVersion string
	MinAppVersion string
}

func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "proctor_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:             getenv("JWT_SECRET", "supersecret_change_me"),
		RefreshJWTSecret:      getenv("REFRESH_JWT_SECRET", getenv("JWT_SECRET", "supersecret_change_me")),
		AccessTokenTTLMinutes: getenv("ACCESS_TOKEN_TTL_MINUTES", "15"),
		RefreshTokenTTLDays:   getenv("REFRESH_TOKEN_TTL_DAYS", "30"),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName: getenv("ADMIN_FULL_NAME", "Administrator"),

		RiskMediumThreshold:   getenvInt("RISK_MEDIUM_THRESHOLD", 10),
		RiskHighThreshold:     getenvInt("RISK_HIGH_THRESHOLD", 25),
		RiskCriticalThreshold: getenvInt("RISK_CRITICAL_THRESHOLD", 50),
		AlertRefire:           getenvBool("ALERT_REFIRE", false),

		PolicyVersion: getenv("POLICY_VERSION", "1"),
		MinAppVersion: getenv("MIN_APP_VERSION", "1.0.0"),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
