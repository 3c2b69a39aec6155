package config

// EnvPrefix is handed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without tags.
const EnvPrefix = "QUICKMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "QUICKMART_DB_DSN"
	EnvDBHost = "QUICKMART_DB_HOST"
	EnvDBUser = "QUICKMART_DB_USER"
	EnvDBName = "QUICKMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
