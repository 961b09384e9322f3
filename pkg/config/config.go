package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable read by the back office.
const EnvPrefix = "RESTOPOS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names reused by tests and error messages.
const (
	EnvAppEnv     = "RESTOPOS_APP_ENV"
	EnvDBDSN      = "RESTOPOS_DB_DSN"
	EnvDBHost     = "RESTOPOS_DB_HOST"
	EnvDBUser     = "RESTOPOS_DB_USER"
	EnvDBName     = "RESTOPOS_DB_NAME"
	EnvRedisURL   = "RESTOPOS_REDIS_URL"
	EnvJWTSecret  = "RESTOPOS_JWT_SECRET"
	EnvJWTIssuer  = "RESTOPOS_JWT_ISSUER"
	EnvJWTExpMins = "RESTOPOS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Permissions  PermissionsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESTOPOS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"RESTOPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESTOPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RESTOPOS_DB_DSN"`
	Driver string `envconfig:"RESTOPOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESTOPOS_DB_HOST"`
	LegacyPort     int    `envconfig:"RESTOPOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESTOPOS_DB_USER"`
	LegacyPassword string `envconfig:"RESTOPOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESTOPOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESTOPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESTOPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESTOPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESTOPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESTOPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESTOPOS_REDIS_URL"`
	Address      string        `envconfig:"RESTOPOS_REDIS_ADDR"`
	Password     string        `envconfig:"RESTOPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESTOPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESTOPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESTOPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESTOPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESTOPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESTOPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESTOPOS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESTOPOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RESTOPOS_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the configured access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RESTOPOS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RESTOPOS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RESTOPOS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RESTOPOS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RESTOPOS_ARGON_KEY_LEN" default:"32"`
}

type PermissionsConfig struct {
	CacheTTL time.Duration `envconfig:"RESTOPOS_PERMISSIONS_CACHE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESTOPOS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
