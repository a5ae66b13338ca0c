package config

const (
	EnvPrefix = "agrolink"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AGROLINK_DB_DSN"
	EnvDBHost = "AGROLINK_DB_HOST"
	EnvDBUser = "AGROLINK_DB_USER"
	EnvDBName = "AGROLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
