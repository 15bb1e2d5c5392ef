package config

const (
	EnvPrefix = "CALORIELENS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "CALORIELENS_APP_ENV"
	EnvPort     = "CALORIELENS_APP_PORT"
	EnvTimezone = "CALORIELENS_TIMEZONE"

	EnvDBDSN  = "CALORIELENS_DB_DSN"
	EnvDBHost = "CALORIELENS_DB_HOST"
	EnvDBUser = "CALORIELENS_DB_USER"
	EnvDBName = "CALORIELENS_DB_NAME"

	EnvRedisURL  = "CALORIELENS_REDIS_URL"
	EnvJWTSecret = "CALORIELENS_JWT_SECRET"
	EnvUseSQLite = "CALORIELENS_USE_SQLITE"

	EnvGeminiAPIKey = "CALORIELENS_GEMINI_API_KEY"

	// Key names the original web client read the inference key from.
	EnvLegacyNextGeminiKey = "NEXT_PUBLIC_GEMINI_API_KEY"
	EnvLegacyViteGeminiKey = "VITE_GEMINI_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

var legacyGeminiKeyVars = []string{EnvLegacyNextGeminiKey, EnvLegacyViteGeminiKey}
