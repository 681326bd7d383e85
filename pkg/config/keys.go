package config

// EnvPrefix is handed to envconfig; every field carries an explicit key, so
// it only matters for fields added without one.
const EnvPrefix = "USERMGMT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "USERMGMT_APP_ENV"
	EnvPort            = "USERMGMT_APP_PORT"
	EnvLogLevel        = "USERMGMT_LOG_LEVEL"
	EnvLogFormat       = "USERMGMT_LOG_FORMAT"
	EnvShutdownTimeout = "USERMGMT_SHUTDOWN_TIMEOUT"
	EnvCORSOrigins     = "USERMGMT_CORS_ORIGINS"

	EnvDBDSN          = "USERMGMT_DB_DSN"
	EnvDBDriver       = "USERMGMT_DB_DRIVER"
	EnvDBHost         = "USERMGMT_DB_HOST"
	EnvDBPort         = "USERMGMT_DB_PORT"
	EnvDBUser         = "USERMGMT_DB_USER"
	EnvDBPassword     = "USERMGMT_DB_PASSWORD"
	EnvDBName         = "USERMGMT_DB_NAME"
	EnvDBSSLMode      = "USERMGMT_DB_SSLMODE"
	EnvDBQueryTimeout = "USERMGMT_DB_QUERY_TIMEOUT"
	EnvDBSlowQuery    = "USERMGMT_DB_SLOW_QUERY"

	EnvRedisURL  = "USERMGMT_REDIS_URL"
	EnvRedisAddr = "USERMGMT_REDIS_ADDR"

	EnvRateLimitRequests = "USERMGMT_RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "USERMGMT_RATE_LIMIT_WINDOW"

	EnvMetricsPath = "USERMGMT_METRICS_PATH"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
