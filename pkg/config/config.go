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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Chat          ChatConfig
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
	Env          string `envconfig:"AGROLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"AGROLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGROLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGROLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGROLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGROLINK_DB_DSN"`
	Driver string `envconfig:"AGROLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGROLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"AGROLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGROLINK_DB_USER"`
	LegacyPassword string `envconfig:"AGROLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGROLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGROLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGROLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGROLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGROLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGROLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGROLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGROLINK_REDIS_ADDR"`
	Password     string        `envconfig:"AGROLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGROLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGROLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGROLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGROLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGROLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGROLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGROLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGROLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AGROLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AGROLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGROLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGROLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGROLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGROLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGROLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGROLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGROLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool   `envconfig:"AGROLINK_AUTO_MIGRATE" default:"false"`
	GCSAccessMode string `envconfig:"AGROLINK_GCS_ACCESS_MODE" default:"public"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGROLINK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AGROLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGROLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"AGROLINK_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"AGROLINK_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"AGROLINK_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	ChatTopic          string `envconfig:"AGROLINK_PUBSUB_CHAT_TOPIC" default:"agrolink-chat-events"`
	ChatSubscription   string `envconfig:"AGROLINK_PUBSUB_CHAT_SUBSCRIPTION" required:"true"`
	OrdersTopic        string `envconfig:"AGROLINK_PUBSUB_ORDERS_TOPIC" default:"agrolink-order-events"`
	OrdersSubscription string `envconfig:"AGROLINK_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"AGROLINK_BIGQUERY_DATASET" default:"agrolink"`
	MarketplaceEventsTable string `envconfig:"AGROLINK_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"AGROLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"AGROLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"AGROLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionAge   time.Duration `envconfig:"AGROLINK_OUTBOX_RETENTION_AGE" default:"168h"`
	IdempotencyTTL time.Duration `envconfig:"AGROLINK_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

type ChatConfig struct {
	StreamBufferSize   int           `envconfig:"AGROLINK_CHAT_STREAM_BUFFER" default:"16"`
	StreamPingPeriod   time.Duration `envconfig:"AGROLINK_CHAT_STREAM_PING_PERIOD" default:"25s"`
	ConsumerMaxBackoff time.Duration `envconfig:"AGROLINK_CHAT_CONSUMER_MAX_BACKOFF" default:"30s"`
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
