package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Hospital HospitalConfig
	Backend  BackendConfig
	Wizard   WizardConfig
}

type AppConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// HospitalConfig holds the operating timezone slot windows are read in.
type HospitalConfig struct {
	Timezone string
	Location *time.Location
}

// BackendConfig points the wizard at a remote booking backend.
// An empty BaseURL means availability and appointments are served in-process.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WizardConfig struct {
	SessionTTL time.Duration
}

// IsProduction reports whether the app runs with production settings
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns the key/value connection string used by gorm
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

// URL returns the connection URL used by the migration runner
func (c DBConfig) URL(scheme string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s", scheme, c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("HOSPITAL_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("WIZARD_SESSION_TTL", "30m")
}

// LoadConfig reads the optional .env file in the working directory and the
// process environment. Environment variables win over the file.
func LoadConfig() (*Config, error) {
	return Load(".env")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	accessExpiry, err := time.ParseDuration(v.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	backendTimeout, err := time.ParseDuration(v.GetString("BACKEND_TIMEOUT"))
	if err != nil || backendTimeout <= 0 {
		return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q", v.GetString("BACKEND_TIMEOUT"))
	}

	sessionTTL, err := time.ParseDuration(v.GetString("WIZARD_SESSION_TTL"))
	if err != nil || sessionTTL <= 0 {
		return nil, fmt.Errorf("invalid WIZARD_SESSION_TTL %q", v.GetString("WIZARD_SESSION_TTL"))
	}

	timezone := v.GetString("HOSPITAL_TIMEZONE")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid HOSPITAL_TIMEZONE %q: %w", timezone, err)
	}

	config := &Config{
		App: AppConfig{
			Port:           v.GetString("APP_PORT"),
			Env:            v.GetString("APP_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Hospital: HospitalConfig{
			Timezone: timezone,
			Location: location,
		},
		Backend: BackendConfig{
			BaseURL: v.GetString("BACKEND_BASE_URL"),
			Timeout: backendTimeout,
		},
		Wizard: WizardConfig{
			SessionTTL: sessionTTL,
		},
	}

	return config, nil
}

// splitList parses a comma separated env value, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
