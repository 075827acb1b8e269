package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. A .env file in the
// working directory is loaded first when present; its absence is not an
// error. Unset or malformed variables keep the current values.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	config.EndpointAddr = getEnv("ADDRESS", config.EndpointAddr)
	config.AppBaseURL = getEnv("APP_BASE_URL", config.AppBaseURL)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getEnv("SECRET_KEY", config.SecretKey)
	config.AccessTokenValidityDuration = getEnvDuration("ACCESS_TOKEN_TTL", config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = getEnvDuration("REFRESH_TOKEN_TTL", config.RefreshTokenValidityDuration)
	config.ResetRequestTTL = getEnvDuration("RESET_REQUEST_TTL", config.ResetRequestTTL)
	config.BcryptCost = getEnvInt("BCRYPT_COST", config.BcryptCost)
	config.SMTPHost = getEnv("SMTP_HOST", config.SMTPHost)
	config.SMTPPort = getEnv("SMTP_PORT", config.SMTPPort)
	config.SMTPUsername = getEnv("SMTP_USERNAME", config.SMTPUsername)
	config.SMTPPassword = getEnv("SMTP_PASSWORD", config.SMTPPassword)
	config.EmailFrom = getEnv("EMAIL_FROM", config.EmailFrom)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
