package config

const (
	// EnvPrefix is empty because every field carries a fully-qualified
	// envconfig tag already.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VIBEBRIDGE_DB_DSN"
	EnvDBHost = "VIBEBRIDGE_DB_HOST"
	EnvDBUser = "VIBEBRIDGE_DB_USER"
	EnvDBName = "VIBEBRIDGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
