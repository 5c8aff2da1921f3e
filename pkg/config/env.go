package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it is informational only.
const EnvPrefix = "MERCADO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "MERCADO_APP_ENV"
	EnvPort              = "MERCADO_APP_PORT"
	EnvPublicURL         = "MERCADO_PUBLIC_URL"
	EnvLogLevel          = "MERCADO_LOG_LEVEL"
	EnvDBDSN             = "MERCADO_DB_DSN"
	EnvDBHost            = "MERCADO_DB_HOST"
	EnvDBUser            = "MERCADO_DB_USER"
	EnvDBName            = "MERCADO_DB_NAME"
	EnvRedisURL          = "MERCADO_REDIS_URL"
	EnvIdentityIssuer    = "MERCADO_IDENTITY_ISSUER"
	EnvIdentityPublicKey = "MERCADO_IDENTITY_PUBLIC_KEY_PEM"
	EnvIdentitySecret    = "MERCADO_IDENTITY_SHARED_SECRET"
	EnvS3Bucket          = "MERCADO_S3_BUCKET"
	EnvS3AccessKeyID     = "MERCADO_S3_ACCESS_KEY_ID"
	EnvS3SecretKey       = "MERCADO_S3_SECRET_ACCESS_KEY"
	EnvS3PresignExpiry   = "MERCADO_S3_PRESIGN_EXPIRY"
	EnvUploadsDir        = "MERCADO_UPLOADS_DIR"
	EnvUseSQLite         = "MERCADO_USE_SQLITE"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
