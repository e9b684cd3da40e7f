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
	Escrow        EscrowConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"VIBEBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"VIBEBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VIBEBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIBEBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"VIBEBRIDGE_DB_DSN"`

	LegacyHost     string `envconfig:"VIBEBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"VIBEBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIBEBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"VIBEBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIBEBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIBEBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIBEBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIBEBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIBEBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIBEBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIBEBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIBEBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"VIBEBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIBEBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIBEBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIBEBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIBEBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIBEBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIBEBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VIBEBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VIBEBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VIBEBRIDGE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VIBEBRIDGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VIBEBRIDGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VIBEBRIDGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VIBEBRIDGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VIBEBRIDGE_ARGON_KEY_LEN" default:"32"`
}

// EscrowConfig carries the settlement knobs: the platform fee percentage applied
// to every fund slice and the defaults used when a project omits them.
type EscrowConfig struct {
	FeePercent          int `envconfig:"VIBEBRIDGE_ESCROW_FEE_PERCENT" default:"8"`
	DefaultRevisions    int `envconfig:"VIBEBRIDGE_ESCROW_DEFAULT_REVISION_LIMIT" default:"3"`
	DefaultSplitRefund  int `envconfig:"VIBEBRIDGE_ESCROW_DEFAULT_SPLIT_REFUND_PERCENT" default:"50"`
	WalletRecentTxLimit int `envconfig:"VIBEBRIDGE_WALLET_RECENT_TX_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VIBEBRIDGE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VIBEBRIDGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VIBEBRIDGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VIBEBRIDGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"VIBEBRIDGE_PUBSUB_DOMAIN_TOPIC" default:"vb-domain-events"`
	DomainSubscription string `envconfig:"VIBEBRIDGE_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VIBEBRIDGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VIBEBRIDGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VIBEBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VIBEBRIDGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"VIBEBRIDGE_CRON_INTERVAL" default:"24h"`
	OutboxRetention  time.Duration `envconfig:"VIBEBRIDGE_CRON_OUTBOX_RETENTION" default:"336h"`
	LockTTL          time.Duration `envconfig:"VIBEBRIDGE_CRON_LOCK_TTL" default:"25h"`
	WalletAuditLimit int           `envconfig:"VIBEBRIDGE_CRON_WALLET_AUDIT_LIMIT" default:"500"`
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
