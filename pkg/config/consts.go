package config

// EnvPrefix is passed to envconfig; variable names are fully qualified in
// struct tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CYTHRO_APP_ENV"
	EnvDBDSN  = "CYTHRO_DB_DSN"
	EnvDBHost = "CYTHRO_DB_HOST"
	EnvDBUser = "CYTHRO_DB_USER"
	EnvDBName = "CYTHRO_DB_NAME"
	EnvRedis  = "CYTHRO_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
