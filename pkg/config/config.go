package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
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
	Cart          CartConfig
	Orders        OrdersConfig
	Realtime      RealtimeConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

// Load reads DISHDASH_* variables, fills derived values and validates the
// result. Every invalid setting is reported, not only the first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.useSQLite()
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.DB.Driver == DriverPostgres || c.DB.Driver == DriverSQLite, "%s must be %q or %q, got %q", EnvDBDriver, DriverPostgres, DriverSQLite, c.DB.Driver)
	check(c.JWT.ExpirationMinutes > 0, "%s must be positive", EnvJWTExpMins)
	check(c.Cart.TTL > 0, "%s must be positive", EnvCartTTL)
	check(c.Cart.LockTTL < c.Cart.TTL, "cart lock ttl %s must be shorter than cart ttl %s", c.Cart.LockTTL, c.Cart.TTL)
	check(c.Orders.PlacedTTL > 0, "%s must be positive", EnvOrderPlacedTTL)
	check(c.Cron.Interval > 0, "cron interval must be positive")
	check(c.Outbox.MaxAttempts > 0, "outbox max attempts must be positive")
	check(c.Outbox.Retention >= 0, "%s must not be negative", EnvOutboxRetention)
	return errs
}

type AppConfig struct {
	Env          string        `envconfig:"DISHDASH_APP_ENV" required:"true"`
	Port         string        `envconfig:"DISHDASH_APP_PORT" required:"true"`
	LogLevel     string        `envconfig:"DISHDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool          `envconfig:"DISHDASH_LOG_WARN_STACK" default:"false"`
	LogFormat    string        `envconfig:"DISHDASH_LOG_FORMAT"`
	CORSOrigins  []string      `envconfig:"DISHDASH_CORS_ALLOWED_ORIGINS" default:"*"`
	ReadTimeout  time.Duration `envconfig:"DISHDASH_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"DISHDASH_HTTP_WRITE_TIMEOUT" default:"0s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISHDASH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISHDASH_DB_DSN"`
	Driver string `envconfig:"DISHDASH_DB_DRIVER" default:"postgres"`

	// Parts are used to build a postgres DSN when DISHDASH_DB_DSN is unset.
	Host     string `envconfig:"DISHDASH_DB_HOST"`
	Port     int    `envconfig:"DISHDASH_DB_PORT" default:"5432"`
	User     string `envconfig:"DISHDASH_DB_USER"`
	Password string `envconfig:"DISHDASH_DB_PASSWORD"`
	Name     string `envconfig:"DISHDASH_DB_NAME"`
	SSLMode  string `envconfig:"DISHDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISHDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"DISHDASH_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHDASH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISHDASH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DISHDASH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DISHDASH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"DISHDASH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"DISHDASH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DISHDASH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DISHDASH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DISHDASH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DISHDASH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DISHDASH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DISHDASH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"DISHDASH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"DISHDASH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"DISHDASH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"DISHDASH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"DISHDASH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DISHDASH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DISHDASH_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	TTL     time.Duration `envconfig:"DISHDASH_CART_TTL" default:"24h"`
	LockTTL time.Duration `envconfig:"DISHDASH_CART_LOCK_TTL" default:"5s"`
}

type OrdersConfig struct {
	PlacedTTL time.Duration `envconfig:"DISHDASH_ORDER_PLACED_TTL" default:"30m"`
}

type RealtimeConfig struct {
	Heartbeat time.Duration `envconfig:"DISHDASH_REALTIME_HEARTBEAT" default:"25s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DISHDASH_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"DISHDASH_CRON_LOCK_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISHDASH_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"DISHDASH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"DISHDASH_PUBSUB_ORDERS_TOPIC" default:"dd-order-events"`
	OrdersSubscription string `envconfig:"DISHDASH_PUBSUB_ORDERS_SUBSCRIPTION"`
	CreateTopics       bool   `envconfig:"DISHDASH_PUBSUB_CREATE_TOPICS" default:"false"`
	OrderedDelivery    bool   `envconfig:"DISHDASH_PUBSUB_ORDERED_DELIVERY" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DISHDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"DISHDASH_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts    int           `envconfig:"DISHDASH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DISHDASH_OUTBOX_RETENTION" default:"168h"`
}

// useSQLite points local runs at a file-backed sqlite database.
func (db *DBConfig) useSQLite() {
	db.Driver = DriverSQLite
	if db.DSN == "" {
		db.DSN = defaultSQLiteDSN
	}
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
