package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Session  SessionConfig
	Password PasswordConfig
	CORS     CORSConfig
	Log      LogConfig
	GameLogs GameLogsConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// URL renders the database settings as a postgres:// URL for the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the server secret and token lifetimes.
type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	// BindRefreshToken requires the refresh token claims to match the access
	// token claims on every protected request.
	BindRefreshToken bool
}

// CookieConfig describes the attributes of the refresh-token cookie and the
// secret used to sign it.
type CookieConfig struct {
	Secret   string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Store string
}

type PasswordConfig struct {
	Cost int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level        string
	Format       string
	File         string
	MaxAge       time.Duration
	RotationTime time.Duration
}

// GameLogsConfig controls where per-game commentary logs are written.
type GameLogsConfig struct {
	Dir        string
	Workers    int
	MaxRetries int
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("AUTH_TOKEN_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		BindRefreshToken:  v.GetBool("AUTH_BIND_REFRESH_TOKEN"),
	}

	cfg.Cookie = CookieConfig{
		Secret:   v.GetString("COOKIE_SECRET"),
		Path:     v.GetString("COOKIE_PATH"),
		Domain:   v.GetString("COOKIE_DOMAIN"),
		Secure:   v.GetBool("COOKIE_SECURE"),
		SameSite: parseSameSite(v.GetString("COOKIE_SAME_SITE")),
	}

	cfg.Session = SessionConfig{Store: strings.ToLower(v.GetString("SESSION_STORE"))}
	switch cfg.Session.Store {
	case SessionStorePostgres, SessionStoreRedis, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.Session.Store)
	}

	cfg.Password = PasswordConfig{Cost: v.GetInt("PASSWORD_COST")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:        v.GetString("LOG_LEVEL"),
		Format:       v.GetString("LOG_FORMAT"),
		File:         v.GetString("LOG_FILE"),
		MaxAge:       parseDuration(v.GetString("LOG_MAX_AGE"), 7*24*time.Hour),
		RotationTime: parseDuration(v.GetString("LOG_ROTATION_TIME"), 24*time.Hour),
	}

	cfg.GameLogs = GameLogsConfig{
		Dir:        v.GetString("GAME_LOGS_DIR"),
		Workers:    v.GetInt("GAME_LOG_WORKERS"),
		MaxRetries: v.GetInt("GAME_LOG_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	if cfg.Env == EnvProduction && (cfg.JWT.Secret == "dev_secret" || cfg.Cookie.Secret == "dev_cookie_secret") {
		return nil, errors.New("JWT_SECRET and COOKIE_SECRET must be set in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("API_PREFIX", "/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "arena")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_TOKEN_EXPIRATION", "1h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("AUTH_BIND_REFRESH_TOKEN", false)

	v.SetDefault("COOKIE_SECRET", "dev_cookie_secret")
	v.SetDefault("COOKIE_PATH", "/")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_SAME_SITE", "none")

	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("PASSWORD_COST", 10)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_AGE", "168h")
	v.SetDefault("LOG_ROTATION_TIME", "24h")

	v.SetDefault("GAME_LOGS_DIR", "./game-logs")
	v.SetDefault("GAME_LOG_WORKERS", 2)
	v.SetDefault("GAME_LOG_RETRIES", 3)

	v.SetDefault("ENABLE_METRICS", true)
}

// isMissingFile reports whether viper failed because the explicit .env file is absent.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
