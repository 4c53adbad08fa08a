package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	// TokenSecret is the shared symmetric key material for quiz tokens and
	// attendance QR payloads. A deployment-wide secret, not per-user.
	TokenSecret string

	QuizBuffer          time.Duration
	DefaultQuizLimit    time.Duration
	QRValidity          time.Duration
	QRRotate            time.Duration
	WindowCacheTTL      time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SIGNLAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SignLab API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("quiz.buffer", "5m")
	v.SetDefault("quiz.default_limit", "20m")
	v.SetDefault("qr.validity", "30s")
	v.SetDefault("qr.rotate", "5s")
	v.SetDefault("window.cache_ttl", "30s")
	v.SetDefault("cloudinary.folder", "signlab/reports")

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		TokenSecret:         v.GetString("token.secret"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
	}

	durations := map[string]*time.Duration{
		"quiz.buffer":        &cfg.QuizBuffer,
		"quiz.default_limit": &cfg.DefaultQuizLimit,
		"qr.validity":        &cfg.QRValidity,
		"qr.rotate":          &cfg.QRRotate,
		"window.cache_ttl":   &cfg.WindowCacheTTL,
	}
	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("token secret must be provided")
	}

	return cfg, nil
}
