package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		DefaultFromEmail string

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		RateLimit RateLimitConfig
	}

	ServerConfig struct {
		Host               string
		Port               int
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSOrigins        []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	RateLimitConfig struct {
		Disabled     bool
		Requests     int
		AuthRequests int
		Window       time.Duration
	}
)

func (c *Config) FromAddress() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
	}
	return *addr
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (d DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// envFromNodeEnv maps the NODE_ENV values used by existing deployments to an ENV.
func envFromNodeEnv(nodeEnv string) string {
	switch strings.ToLower(nodeEnv) {
	case "production":
		return "PROD"
	case "test":
		return "TEST"
	default:
		return "DEV"
	}
}

// NewConfig loads the app configuration from the environment.
// A `.env` file at the project root, and `config/.env.<env>`, are loaded first if they exist.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = envFromNodeEnv(os.Getenv("NODE_ENV"))
	}
	loadDotEnv(".env")
	loadDotEnv(filepath.Join("config", ".env."+strings.ToLower(env)))

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()

	// defaults
	v.SetDefault("BUILD", "develop")
	v.SetDefault("APP_NAME", "CBLMS")
	v.SetDefault("DEBUG", env == "DEV")
	v.SetDefault("JWT_SECRET", "1o&kx5^v(7$u!w3vwy*n=g7b-8)kz5x@qz9^k+4d#r2p")
	v.SetDefault("JWT_EXPIRES_IN", 24*time.Hour)
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_FROM_EMAIL", "CBLMS <noreply@localhost>")

	v.SetDefault("HOST", "")
	v.SetDefault("PORT", 8000)
	v.SetDefault("DEBUG_HOST", "127.0.0.1:4000")
	v.SetDefault("SERVER_READ_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173")

	v.SetDefault("DATABASE_ENGINE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_NAME", "cblms")
	v.SetDefault("DATABASE_USER", "cblms")
	v.SetDefault("DATABASE_PASSWORD", "cblms")
	v.SetDefault("DATABASE_DISABLE_TLS", env == "DEV" || env == "TEST")

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RATE_LIMIT_DISABLED", env == "TEST")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_AUTH_REQUESTS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)

	return &Config{
		Env:              env,
		Build:            v.GetString("BUILD"),
		AppName:          v.GetString("APP_NAME"),
		Debug:            v.GetBool("DEBUG"),
		TestMode:         env == "TEST",
		SecretKey:        v.GetString("JWT_SECRET"),
		FrontendBaseURL:  v.GetString("FRONTEND_BASE_URL"),
		SendgridApiKey:   v.GetString("SENDGRID_API_KEY"),
		RollbarToken:     v.GetString("ROLLBAR_TOKEN"),
		DefaultFromEmail: v.GetString("DEFAULT_FROM_EMAIL"),
		Server: ServerConfig{
			Host:               v.GetString("HOST"),
			Port:               v.GetInt("PORT"),
			DebugHost:          v.GetString("DEBUG_HOST"),
			ReadTimeout:        v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:       v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout:    v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			JWTExpirationDelta: v.GetDuration("JWT_EXPIRES_IN"),
			CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("DATABASE_ENGINE"),
			Host:          v.GetString("DATABASE_HOST"),
			Port:          v.GetInt("DATABASE_PORT"),
			Name:          v.GetString("DATABASE_NAME"),
			User:          v.GetString("DATABASE_USER"),
			Password:      v.GetString("DATABASE_PASSWORD"),
			AdminUser:     v.GetString("DATABASE_ADMIN_USER"),
			AdminPassword: v.GetString("DATABASE_ADMIN_PASSWORD"),
			DisableTLS:    v.GetBool("DATABASE_DISABLE_TLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Disabled:     v.GetBool("RATE_LIMIT_DISABLED"),
			Requests:     v.GetInt("RATE_LIMIT_REQUESTS"),
			AuthRequests: v.GetInt("RATE_LIMIT_AUTH_REQUESTS"),
			Window:       v.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

// load .env if it exists (ignore if it does not)
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Fatalf("config.godotenv(%s): %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", path, err)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
