package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"

	"github.com/shieldscore/authkit/pkg/audit"
	"github.com/shieldscore/authkit/pkg/auth"
	authapi "github.com/shieldscore/authkit/pkg/auth/api"
	pkgconfig "github.com/shieldscore/authkit/pkg/config"
	"github.com/shieldscore/authkit/pkg/notification"
	"github.com/shieldscore/authkit/pkg/password"
	"github.com/shieldscore/authkit/pkg/ratelimit"
	"github.com/shieldscore/authkit/pkg/session"
)

type DbConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTH_PG_SCHEMA" env-default:"public"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type JwtConfig struct {
	Secret             string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer             string        `env:"JWT_ISSUER" env-default:"authkit"`
	Audience           string        `env:"JWT_AUDIENCE" env-default:"authkit"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" env-default:"168h"`
	CookieSecure       bool          `env:"COOKIE_SECURE" env-default:"true"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type LoginConfig struct {
	MaxFailedAttempts int           `env:"LOGIN_MAX_FAILED_ATTEMPTS" env-default:"5"`
	LockoutDuration   time.Duration `env:"LOGIN_LOCKOUT_DURATION" env-default:"30m"`
}

type Config struct {
	BaseUrl                  string `env:"BASE_URL" env-default:"http://localhost:3000"`
	DbConfig                 DbConfig
	AppConfig                app.AppConfig
	JwtConfig                JwtConfig
	EmailConfig              EmailConfig
	LoginConfig              LoginConfig
	RateLimitConfig          pkgconfig.RateLimitConfig
	PasswordComplexityConfig pkgconfig.PasswordComplexityConfig
	SessionCleanupInterval   time.Duration `env:"SESSION_CLEANUP_INTERVAL" env-default:"1h"`
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get current working directory", "error", err)
		return
	}

	envFile := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}

	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func newLimiter(cfg *pkgconfig.RateLimitConfig) ratelimit.Limiter {
	if cfg.RedisAddr != "" {
		slog.Info("Using Redis rate limiter", "addr", cfg.RedisAddr)
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return ratelimit.NewRedisLimiter(client, cfg.ToConfigs())
	}
	return ratelimit.NewMemoryLimiter(cfg.ToConfigs())
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultWithoutRoutes()
	app.RoutesHealthz(server.R)

	dbURL := config.DbConfig.toDatabaseURL()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.DbConfig.Database,
			"host", config.DbConfig.Host, "port", config.DbConfig.Port, "user", config.DbConfig.User)
		os.Exit(-1)
	}

	// Repositories
	authRepo := auth.NewPostgresRepository(pool)
	sessionRepo := session.NewPostgresRepository(pool)
	auditRepo := audit.NewPostgresRepository(pool)

	// Rate limiter (in-process, or Redis when configured)
	limiter := newLimiter(&config.RateLimitConfig)
	defer limiter.Close()

	// Email notices
	emailNotifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
		Host:     config.EmailConfig.Host,
		Port:     config.EmailConfig.Port,
		TLS:      config.EmailConfig.TLS,
		Username: config.EmailConfig.Username,
		Password: config.EmailConfig.Password,
		From:     config.EmailConfig.From,
	})
	if err != nil {
		slog.Error("Failed to create email notifier", "error", err)
		os.Exit(-1)
	}
	notificationManager := notification.NewNotificationManager(config.BaseUrl, emailNotifier)

	// Security event trail
	auditLogger := audit.NewLogger(auditRepo)

	// Sessions
	sessionManager := session.NewManager(sessionRepo, []byte(config.JwtConfig.Secret),
		session.WithIssuer(config.JwtConfig.Issuer),
		session.WithAudience(config.JwtConfig.Audience),
		session.WithAccessTokenExpiry(config.JwtConfig.AccessTokenExpiry),
		session.WithRefreshTokenExpiry(config.JwtConfig.RefreshTokenExpiry),
	)

	// Auth service
	authService := auth.NewAuthService(
		authRepo,
		password.NewBcryptHasher(password.BcryptCost),
		config.PasswordComplexityConfig.ToPolicy(),
		sessionManager,
		notificationManager,
		auditLogger,
		auth.WithLockout(config.LoginConfig.MaxFailedAttempts, config.LoginConfig.LockoutDuration),
		auth.WithPasswordExpiryDays(config.PasswordComplexityConfig.ExpiryDays),
	)

	handlerOptions := []authapi.HandlerOption{}
	if !config.JwtConfig.CookieSecure {
		handlerOptions = append(handlerOptions, authapi.WithInsecureCookies())
	}
	authHandler := authapi.NewHandler(authService, limiter, handlerOptions...)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.Secret), nil)

	server.R.Route("/auth", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			authHandler.RegisterProtectedRoutes(r)
		})
	})

	// Background session cleanup
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go sessionManager.StartCleanup(cleanupCtx, config.SessionCleanupInterval)

	slog.Info("Auth server ready", "base_url", config.BaseUrl)

	server.Run()
}
