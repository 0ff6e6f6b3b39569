// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Quote    QuoteConfig
	Storage  StorageConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
	// MaxBodyBytes bounds request bodies, including base64 PDF uploads.
	MaxBodyBytes int64
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// RawURL, when set, overrides the individual postgres fields.
	RawURL     string
	SQLitePath string
	Debug      bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool

	// CompanyName heads generated proposals.
	CompanyName string
}

// QuoteConfig controls quote number composition.
type QuoteConfig struct {
	// WebSuffix is appended to quote numbers created by the public intake endpoint.
	WebSuffix string
	// DefaultSuffix is used for staff-created submittals without a name code.
	DefaultSuffix string
	SequenceName  string
	SequenceStart int64
}

// StorageConfig holds S3 settings for uploaded documents.
type StorageConfig struct {
	Bucket string
	Region string
	// PublicBaseURL, when set, prefixes object keys in returned URLs.
	PublicBaseURL string
}

// NotifyConfig selects notifier backends.
type NotifyConfig struct {
	// Drivers is any combination of "log", "eventlog", "pg", "sns".
	Drivers     []string
	SNSTopicARN string
	PGChannel   string
	Region      string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.RawURL != "" {
		return d.RawURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	if d.RawURL != "" {
		return d.RawURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsPostgres reports whether the configured driver is PostgreSQL.
func (d DatabaseConfig) IsPostgres() bool {
	return d.Driver == "" || d.Driver == "postgres"
}

// Has reports whether the named notifier driver is enabled.
func (n NotifyConfig) Has(driver string) bool {
	for _, d := range n.Drivers {
		if d == driver {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	region := getEnv("AWS_REGION", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			MaxBodyBytes: int64(getEnvInt("SERVER_MAX_BODY_MB", 20)) << 20,
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "submittals"),
			Password:   getEnv("DB_PASSWORD", "submittals123"),
			DBName:     getEnv("DB_NAME", "submittals"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			RawURL:     getEnv("DATABASE_URL", ""),
			SQLitePath: getEnv("SQLITE_PATH", "submittals.db"),
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:         getEnvBool("DEV", true),
			Migrations:  getEnvBool("MIGRATIONS", false),
			Seed:        getEnvBool("DB_SEED", false),
			CompanyName: getEnv("COMPANY_NAME", "Submittals"),
		},
		Quote: QuoteConfig{
			WebSuffix:     getEnv("QUOTE_WEB_SUFFIX", "WEB"),
			DefaultSuffix: getEnv("QUOTE_DEFAULT_SUFFIX", "XX"),
			SequenceName:  getEnv("QUOTE_SEQUENCE_NAME", "quote_number_seq"),
			SequenceStart: int64(getEnvInt("QUOTE_SEQUENCE_START", 1000)),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("S3_BUCKET", "submittal-pdfs"),
			Region:        region,
			PublicBaseURL: strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Notify: NotifyConfig{
			Drivers:     getEnvList("NOTIFY_DRIVERS", []string{"log", "eventlog"}),
			SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),
			PGChannel:   getEnv("PG_NOTIFY_CHANNEL", "submittals"),
			Region:      region,
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
