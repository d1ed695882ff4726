package config

// EnvPrefix is passed to envconfig; every field carries its full name.
const EnvPrefix = "DISHDASH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DISHDASH_APP_ENV"
	EnvPort     = "DISHDASH_APP_PORT"
	EnvLogLevel = "DISHDASH_LOG_LEVEL"

	EnvDBDSN    = "DISHDASH_DB_DSN"
	EnvDBDriver = "DISHDASH_DB_DRIVER"
	EnvDBHost   = "DISHDASH_DB_HOST"
	EnvDBPort   = "DISHDASH_DB_PORT"
	EnvDBUser   = "DISHDASH_DB_USER"
	EnvDBPass   = "DISHDASH_DB_PASSWORD"
	EnvDBName   = "DISHDASH_DB_NAME"

	EnvRedisURL = "DISHDASH_REDIS_URL"

	EnvJWTSecret              = "DISHDASH_JWT_SECRET"
	EnvJWTIssuer              = "DISHDASH_JWT_ISSUER"
	EnvJWTExpMins             = "DISHDASH_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "DISHDASH_REFRESH_TOKEN_TTL_MINUTES"

	EnvCartTTL         = "DISHDASH_CART_TTL"
	EnvOrderPlacedTTL  = "DISHDASH_ORDER_PLACED_TTL"
	EnvCORSOrigins     = "DISHDASH_CORS_ALLOWED_ORIGINS"
	EnvPubSubOrders    = "DISHDASH_PUBSUB_ORDERS_TOPIC"
	EnvOutboxRetention = "DISHDASH_OUTBOX_RETENTION"
	EnvUseSQLite       = "DISHDASH_USE_SQLITE"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:dishdash.db?cache=shared&_foreign_keys=on"
)
