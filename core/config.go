package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Addr                      string
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second per client
		RateBurst                 int
	}

	APIConfig struct {
		BaseURL        string
		Token          string
		DefaultTimeout time.Duration
		ShortTimeout   time.Duration
		UploadTimeout  time.Duration
	}

	CacheConfig struct {
		TTL        time.Duration
		MaxEntries int
	}

	// DevAPIConfig configures the in-memory backend used for local development.
	DevAPIConfig struct {
		Addr          string
		AdminPassword string
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		Lang             string // fr (default) | en
		FrontendBaseURL  string
		RollbarToken     string
		SendgridAPIKey   string
		defaultFromEmail string

		Server ServerConfig
		API    APIConfig
		Cache  CacheConfig
		DevAPI DevAPIConfig
	}
)

// NewConfig loads the configuration from the environment (and config/.env.<env> when present).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Masomo Admin")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("lang", "fr")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("defaultFromEmail", "Masomo <noreply@localhost>")

	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverRateLimit", 20.0)
	v.SetDefault("serverRateBurst", 40)

	v.SetDefault("apiBaseURL", "http://localhost:8080/api")
	v.SetDefault("apiToken", "dev-token")
	v.SetDefault("apiDefaultTimeout", 30*time.Second)
	v.SetDefault("apiShortTimeout", 10*time.Second)
	v.SetDefault("apiUploadTimeout", 120*time.Second)

	v.SetDefault("cacheTTL", 5*time.Minute)
	v.SetDefault("cacheMaxEntries", 200)

	v.SetDefault("devapiAddr", ":8080")
	v.SetDefault("devapiAdminPassword", "admin")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		Lang:             strings.ToLower(v.GetString("lang")),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Addr:                      v.GetString("serverAddr"),
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("serverRateLimit"),
			RateBurst:                 v.GetInt("serverRateBurst"),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Token:          v.GetString("apiToken"),
			DefaultTimeout: v.GetDuration("apiDefaultTimeout"),
			ShortTimeout:   v.GetDuration("apiShortTimeout"),
			UploadTimeout:  v.GetDuration("apiUploadTimeout"),
		},
		Cache: CacheConfig{
			TTL:        v.GetDuration("cacheTTL"),
			MaxEntries: v.GetInt("cacheMaxEntries"),
		},
		DevAPI: DevAPIConfig{
			Addr:          v.GetString("devapiAddr"),
			AdminPassword: v.GetString("devapiAdminPassword"),
		},
	}
}

// DefaultFromEmail parses the configured sender address.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

// SetDefaultFromEmail is used by tests and CLIs that build a Config by hand.
func (conf *Config) SetDefaultFromEmail(addr string) {
	conf.defaultFromEmail = addr
}
