package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	Storage      StorageConfig
	Uploads      UploadsConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Identity.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"MERCADO_APP_ENV" required:"true"`
	Port         string   `envconfig:"MERCADO_APP_PORT" default:"8080"`
	PublicURL    string   `envconfig:"MERCADO_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string   `envconfig:"MERCADO_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"MERCADO_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MERCADO_CORS_ORIGINS" default:"http://localhost:3000"`

	ReadTimeout     time.Duration `envconfig:"MERCADO_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"MERCADO_HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"MERCADO_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// ShareURL builds the public URL for a catalog share slug.
func (a AppConfig) ShareURL(vendorSlug, shareSlug string) string {
	base := strings.TrimRight(a.PublicURL, "/")
	return fmt.Sprintf("%s/v/%s/share/%s", base, vendorSlug, shareSlug)
}

type DBConfig struct {
	DSN        string `envconfig:"MERCADO_DB_DSN"`
	SQLitePath string `envconfig:"MERCADO_DB_SQLITE_PATH" default:"mercado.db"`

	Host     string `envconfig:"MERCADO_DB_HOST"`
	Port     int    `envconfig:"MERCADO_DB_PORT" default:"5432"`
	User     string `envconfig:"MERCADO_DB_USER"`
	Password string `envconfig:"MERCADO_DB_PASSWORD"`
	Name     string `envconfig:"MERCADO_DB_NAME"`
	SSLMode  string `envconfig:"MERCADO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCADO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCADO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCADO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCADO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCADO_REDIS_URL"`
	Address      string        `envconfig:"MERCADO_REDIS_ADDR"`
	Password     string        `envconfig:"MERCADO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCADO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCADO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCADO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCADO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCADO_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"MERCADO_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// IdentityConfig describes how session tokens minted by the identity provider are verified.
type IdentityConfig struct {
	Issuer       string        `envconfig:"MERCADO_IDENTITY_ISSUER"`
	PublicKeyPEM string        `envconfig:"MERCADO_IDENTITY_PUBLIC_KEY_PEM"`
	SharedSecret string        `envconfig:"MERCADO_IDENTITY_SHARED_SECRET"`
	CookieName   string        `envconfig:"MERCADO_IDENTITY_COOKIE" default:"__session"`
	ClockSkew    time.Duration `envconfig:"MERCADO_IDENTITY_CLOCK_SKEW" default:"30s"`
}

func (i IdentityConfig) validate() error {
	if strings.TrimSpace(i.PublicKeyPEM) == "" && strings.TrimSpace(i.SharedSecret) == "" {
		return fmt.Errorf("either %s or %s is required", EnvIdentityPublicKey, EnvIdentitySecret)
	}
	return nil
}

type StorageConfig struct {
	Bucket          string        `envconfig:"MERCADO_S3_BUCKET"`
	Region          string        `envconfig:"MERCADO_S3_REGION" default:"us-east-1"`
	AccessKeyID     string        `envconfig:"MERCADO_S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"MERCADO_S3_SECRET_ACCESS_KEY"`
	Endpoint        string        `envconfig:"MERCADO_S3_ENDPOINT"`
	UsePathStyle    bool          `envconfig:"MERCADO_S3_USE_PATH_STYLE" default:"false"`
	PublicBaseURL   string        `envconfig:"MERCADO_S3_PUBLIC_BASE_URL"`
	PresignExpiry   time.Duration `envconfig:"MERCADO_S3_PRESIGN_EXPIRY" default:"5m"`
}

// Enabled reports whether S3 credentials and bucket are present.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

type UploadsConfig struct {
	Dir         string `envconfig:"MERCADO_UPLOADS_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"MERCADO_MAX_UPLOAD_MB" default:"10"`
}

// MaxBytes returns the upload ceiling in bytes.
func (u UploadsConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(u.MaxUploadMB) << 20
}

type RateLimitConfig struct {
	EventsWindow time.Duration `envconfig:"MERCADO_RATE_LIMIT_EVENTS_WINDOW" default:"1m"`
	EventsIPMax  int           `envconfig:"MERCADO_RATE_LIMIT_EVENTS_IP_LIMIT" default:"10"`
	SearchWindow time.Duration `envconfig:"MERCADO_RATE_LIMIT_SEARCH_WINDOW" default:"1m"`
	SearchIPMax  int           `envconfig:"MERCADO_RATE_LIMIT_SEARCH_IP_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MERCADO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MERCADO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dsnPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
