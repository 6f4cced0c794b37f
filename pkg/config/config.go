package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "VENDORHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VENDORHUB_DB_DSN"
	EnvDBHost = "VENDORHUB_DB_HOST"
	EnvDBUser = "VENDORHUB_DB_USER"
	EnvDBName = "VENDORHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Gateway       GatewayConfig
	PubSub        PubSubConfig
	GCP           GCPConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"VENDORHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORHUB_DB_DSN"`
	Driver string `envconfig:"VENDORHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORHUB_DB_USER"`
	LegacyPassword string `envconfig:"VENDORHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORHUB_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDORHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VENDORHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VENDORHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VENDORHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VENDORHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VENDORHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VENDORHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// GatewayConfig controls how the HTTP layer wraps stock ledger calls.
type GatewayConfig struct {
	StockCallTimeout time.Duration `envconfig:"VENDORHUB_GATEWAY_STOCK_CALL_TIMEOUT" default:"5s"`
	IdempotencyTTL   time.Duration `envconfig:"VENDORHUB_GATEWAY_IDEMPOTENCY_TTL" default:"24h"`
}

type PubSubConfig struct {
	InventoryCommandTopic        string `envconfig:"VENDORHUB_PUBSUB_INVENTORY_COMMAND_TOPIC" default:"inventory-commands"`
	InventoryCommandSubscription string `envconfig:"VENDORHUB_PUBSUB_INVENTORY_COMMAND_SUBSCRIPTION" required:"true"`
	InventoryResultTopic         string `envconfig:"VENDORHUB_PUBSUB_INVENTORY_RESULT_TOPIC" default:"inventory-results"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDORHUB_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENDORHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDORHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDORHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDORHUB_AUTO_MIGRATE" default:"false"`
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
