package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB      DBConfig
	MinIO   MinIOConfig
	JWT     JWTConfig
	Server  ServerConfig
	Groups  GroupsConfig
	Sweeper SweeperConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
	// PublicBaseURL is the externally reachable origin used to build
	// {base}/shared/{token} links returned to link creators.
	PublicBaseURL string
}

type GroupsConfig struct {
	// MaxMembers caps active members per group, owner included.
	MaxMembers int
	// DeletionGraceDays is the window between an owner leaving a non-empty
	// group and the scheduled group deletion.
	DeletionGraceDays int
	// MemberContentGraceDays is the window after a member leaves before their
	// shared content becomes eligible for removal.
	MemberContentGraceDays int
}

type SweeperConfig struct {
	Interval time.Duration
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "photovault"),
			Password: getEnv("DB_PASSWORD", "photovault_secret"),
			Name:     getEnv("DB_NAME", "photovault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "photovault"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "photovault_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "photovault"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3001"),
		},
		Groups: GroupsConfig{
			MaxMembers:             getEnvAsInt("GROUP_MAX_MEMBERS", 50),
			DeletionGraceDays:      getEnvAsInt("GROUP_DELETION_GRACE_DAYS", 7),
			MemberContentGraceDays: getEnvAsInt("MEMBER_CONTENT_GRACE_DAYS", 30),
		},
		Sweeper: SweeperConfig{
			Interval: getEnvAsDuration("SWEEPER_INTERVAL", 1*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
