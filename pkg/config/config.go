package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Gateway       GatewayConfig
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
	Env          string `envconfig:"QUICKMART_APP_ENV" required:"true"`
	Port         string `envconfig:"QUICKMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUICKMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUICKMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"QUICKMART_DB_DSN"`
	Driver string `envconfig:"QUICKMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUICKMART_DB_HOST"`
	LegacyPort     int    `envconfig:"QUICKMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUICKMART_DB_USER"`
	LegacyPassword string `envconfig:"QUICKMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUICKMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUICKMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUICKMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUICKMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUICKMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUICKMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUICKMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUICKMART_REDIS_ADDR"`
	Password     string        `envconfig:"QUICKMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUICKMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUICKMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUICKMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUICKMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUICKMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUICKMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUICKMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUICKMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"QUICKMART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"QUICKMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"QUICKMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"QUICKMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"QUICKMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"QUICKMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"QUICKMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"QUICKMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"QUICKMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUICKMART_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig holds the hosted-checkout payment gateway credentials and the
// callback URLs the gateway redirects shoppers to after settlement.
type GatewayConfig struct {
	BaseURL        string        `envconfig:"QUICKMART_GATEWAY_BASE_URL" required:"true"`
	StoreID        string        `envconfig:"QUICKMART_GATEWAY_STORE_ID" required:"true"`
	StorePassword  string        `envconfig:"QUICKMART_GATEWAY_STORE_PASSWORD" required:"true"`
	SuccessURL     string        `envconfig:"QUICKMART_GATEWAY_SUCCESS_URL" required:"true"`
	FailURL        string        `envconfig:"QUICKMART_GATEWAY_FAIL_URL" required:"true"`
	CancelURL      string        `envconfig:"QUICKMART_GATEWAY_CANCEL_URL" required:"true"`
	Currency       string        `envconfig:"QUICKMART_GATEWAY_CURRENCY" default:"USD"`
	RequestTimeout time.Duration `envconfig:"QUICKMART_GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	CallbackTTL    time.Duration `envconfig:"QUICKMART_GATEWAY_CALLBACK_TTL" default:"72h"`
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
