package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it is informational only.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBPort   = "STOREFRONT_DB_PORT"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBPass   = "STOREFRONT_DB_PASSWORD"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "STOREFRONT_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "STOREFRONT_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvCheckoutSessionTTL = "STOREFRONT_CHECKOUT_SESSION_TTL"
	EnvCheckoutCurrency   = "STOREFRONT_CHECKOUT_CURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
