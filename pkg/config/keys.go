package config

// EnvPrefix is handed to envconfig; every field also carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayModeRazorpay = "razorpay"
	GatewayModeFake     = "fake"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvGatewayMode       = "STOREFRONT_GATEWAY_MODE"
	EnvRazorpayKeyID     = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "STOREFRONT_RAZORPAY_KEY_SECRET"

	EnvMaintenanceCacheTTL = "STOREFRONT_MAINTENANCE_CACHE_TTL"
	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
