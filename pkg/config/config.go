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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Lifecycle    LifecycleConfig
	Rewards      RewardsConfig
	Panel        PanelConfig
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
	Env          string `envconfig:"CYTHRO_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"CYTHRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CYTHRO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CYTHRO_SERVICE_KIND" default:"lifecycle-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"CYTHRO_DB_DSN"`
	Driver string `envconfig:"CYTHRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CYTHRO_DB_HOST"`
	LegacyPort     int    `envconfig:"CYTHRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CYTHRO_DB_USER"`
	LegacyPassword string `envconfig:"CYTHRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"CYTHRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"CYTHRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CYTHRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CYTHRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CYTHRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CYTHRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CYTHRO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CYTHRO_REDIS_ADDR"`
	Password     string        `envconfig:"CYTHRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"CYTHRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CYTHRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CYTHRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CYTHRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CYTHRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CYTHRO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LifecycleConfig tunes the server lifecycle passes. Cycle length and
// grace period are deployment policy, never hard-coded in the passes.
type LifecycleConfig struct {
	Interval     time.Duration `envconfig:"CYTHRO_LIFECYCLE_INTERVAL" default:"60s"`
	BillingCycle time.Duration `envconfig:"CYTHRO_LIFECYCLE_BILLING_CYCLE" default:"720h"`
	GracePeriod  time.Duration `envconfig:"CYTHRO_LIFECYCLE_GRACE_PERIOD" default:"72h"`
}

// RewardsConfig holds the coin amounts for the one-shot earning programs.
type RewardsConfig struct {
	DailyLoginCoins    int64 `envconfig:"CYTHRO_REWARD_DAILY_LOGIN_COINS" default:"10"`
	FirstServerCoins   int64 `envconfig:"CYTHRO_REWARD_FIRST_SERVER_COINS" default:"50"`
	ReferrerCoins      int64 `envconfig:"CYTHRO_REWARD_REFERRER_COINS" default:"25"`
	ReferredCoins      int64 `envconfig:"CYTHRO_REWARD_REFERRED_COINS" default:"15"`
	SocialConnectCoins int64 `envconfig:"CYTHRO_REWARD_SOCIAL_CONNECT_COINS" default:"20"`
}

// PanelConfig points at the Pterodactyl application API.
type PanelConfig struct {
	BaseURL string        `envconfig:"CYTHRO_PANEL_BASE_URL"`
	APIKey  string        `envconfig:"CYTHRO_PANEL_API_KEY"`
	Timeout time.Duration `envconfig:"CYTHRO_PANEL_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CYTHRO_AUTO_MIGRATE" default:"false"`
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
