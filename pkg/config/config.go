package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/calorielens-backend/pkg/env"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Identity     IdentityConfig
	Gemini       GeminiConfig
	Analysis     AnalysisConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	cfg.Gemini.resolveLegacyKey()
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CALORIELENS_APP_ENV" required:"true"`
	Port         string   `envconfig:"CALORIELENS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CALORIELENS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CALORIELENS_LOG_WARN_STACK" default:"false"`
	Timezone     string   `envconfig:"CALORIELENS_TIMEZONE" default:"Local"`
	MaxUploadMB  int      `envconfig:"CALORIELENS_MAX_UPLOAD_MB" default:"5"`
	CORSOrigins  []string `envconfig:"CALORIELENS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// Location resolves the default calendar-day timezone used for daily totals.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimezone, name, err)
	}
	return loc, nil
}

// MaxUploadBytes converts the advisory upload cap into bytes.
func (a AppConfig) MaxUploadBytes() int64 {
	if a.MaxUploadMB <= 0 {
		return 0
	}
	return int64(a.MaxUploadMB) << 20
}

type DBConfig struct {
	DSN        string `envconfig:"CALORIELENS_DB_DSN"`
	Driver     string `envconfig:"CALORIELENS_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"CALORIELENS_SQLITE_PATH" default:"calorielens.db"`

	LegacyHost     string `envconfig:"CALORIELENS_DB_HOST"`
	LegacyPort     int    `envconfig:"CALORIELENS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CALORIELENS_DB_USER"`
	LegacyPassword string `envconfig:"CALORIELENS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CALORIELENS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CALORIELENS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CALORIELENS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CALORIELENS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CALORIELENS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CALORIELENS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CALORIELENS_REDIS_URL"`
	Address      string        `envconfig:"CALORIELENS_REDIS_ADDR"`
	Password     string        `envconfig:"CALORIELENS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CALORIELENS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CALORIELENS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CALORIELENS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CALORIELENS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CALORIELENS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CALORIELENS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the access tokens issued by the hosted identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"CALORIELENS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CALORIELENS_JWT_ISSUER"`
	Audience          string `envconfig:"CALORIELENS_JWT_AUDIENCE" default:"authenticated"`
	ExpirationMinutes int    `envconfig:"CALORIELENS_JWT_EXPIRATION_MINUTES" default:"60"`
	RevocationTTLMins int    `envconfig:"CALORIELENS_SESSION_REVOCATION_TTL_MINUTES" default:"1440"`
}

// RevocationTTL is used for signed-out sessions whose token carries no expiry.
func (j JWTConfig) RevocationTTL() time.Duration {
	if j.RevocationTTLMins <= 0 {
		return 0
	}
	return time.Duration(j.RevocationTTLMins) * time.Minute
}

type IdentityConfig struct {
	URL         string `envconfig:"CALORIELENS_IDENTITY_URL"`
	RedirectURL string `envconfig:"CALORIELENS_IDENTITY_REDIRECT_URL"`
}

type GeminiConfig struct {
	APIKey          string        `envconfig:"CALORIELENS_GEMINI_API_KEY"`
	Model           string        `envconfig:"CALORIELENS_GEMINI_MODEL" default:"gemini-2.0-flash"`
	BaseURL         string        `envconfig:"CALORIELENS_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1"`
	Timeout         time.Duration `envconfig:"CALORIELENS_GEMINI_TIMEOUT" default:"60s"`
	Temperature     float64       `envconfig:"CALORIELENS_GEMINI_TEMPERATURE" default:"0.4"`
	MaxOutputTokens int           `envconfig:"CALORIELENS_GEMINI_MAX_OUTPUT_TOKENS" default:"1024"`

	// KeySource records which variable supplied APIKey.
	KeySource string `ignored:"true"`
}

// Configured reports whether an inference API key was supplied.
func (g GeminiConfig) Configured() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

func (g *GeminiConfig) resolveLegacyKey() {
	if g.Configured() {
		g.APIKey = strings.TrimSpace(g.APIKey)
		g.KeySource = EnvGeminiAPIKey
		return
	}
	g.APIKey, g.KeySource = env.First(legacyGeminiKeyVars...)
}

type AnalysisConfig struct {
	ResultTTL time.Duration `envconfig:"CALORIELENS_ANALYSIS_RESULT_TTL" default:"24h"`
}

type RateLimitConfig struct {
	AnalysisWindow time.Duration `envconfig:"CALORIELENS_RATE_LIMIT_ANALYSIS_WINDOW" default:"1m"`
	AnalysisLimit  int           `envconfig:"CALORIELENS_RATE_LIMIT_ANALYSIS_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CALORIELENS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CALORIELENS_AUTO_MIGRATE" default:"false"`
	DevTokens   bool `envconfig:"CALORIELENS_DEV_TOKENS" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
