package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineMongo    = "mongo"
	EngineMemory   = "memory"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridAPIKey   string

		JWTExpirationDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Log      LogConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
		UploadDir       string
		MaxUploadSize   string // echo body limit format, eg. "10M"
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
		MongoURI      string
	}

	LogConfig struct {
		Level  string // debug, info, warn, error
		Format string // json, console
	}
)

// Address returns the "host:port" the database listens on.
func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// DSN returns the postgres connection URL for dbName (defaults to the configured name).
func (dbc DatabaseConfig) DSN(dbName ...string) string {
	name := dbc.Name
	if len(dbName) > 0 {
		name = dbName[0]
	}

	sslMode := "require"
	if dbc.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbc.User, dbc.Password),
		Host:     dbc.Address(),
		Path:     name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewConfig loads the app configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Presence")
	v.SetDefault("secretKey", "t7$k2#lq-vz9=w!b4m^e0n&x)r5(c8@gu1h+ydp3s*ja6")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Presence <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverUploadDir", "uploads")
	v.SetDefault("serverMaxUploadSize", "10M")

	v.SetDefault("databaseEngine", EnginePostgres)
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "presence")
	v.SetDefault("databasePassword", "presence")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseName", "presence")
	v.SetDefault("databaseDisableTLS", true)
	v.SetDefault("databaseMongoURI", "mongodb://localhost:27017")

	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatal(fmt.Errorf("config.defaultFromEmail: %v", err))
	}

	return &Config{
		Env:                env,
		Build:              v.GetString("build"),
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		SecretKey:          v.GetString("secretKey"),
		FrontendBaseURL:    v.GetString("frontendBaseURL"),
		DefaultFromEmail:   *fromEmail,
		RollbarToken:       v.GetString("rollbarToken"),
		SendgridAPIKey:     v.GetString("sendgridAPIKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			UploadDir:       v.GetString("serverUploadDir"),
			MaxUploadSize:   v.GetString("serverMaxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("databaseEngine")),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Name:          v.GetString("databaseName"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
			MongoURI:      v.GetString("databaseMongoURI"),
		},
		Log: LogConfig{
			Level:  v.GetString("logLevel"),
			Format: v.GetString("logFormat"),
		},
	}
}

// NewTestConfig returns a config suitable for tests: in-memory storage, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                "TEST",
		Build:              "test",
		TestMode:           true,
		AppName:            "Presence",
		SecretKey:          "secret",
		FrontendBaseURL:    "http://localhost:3000",
		DefaultFromEmail:   mail.Address{Name: "Presence", Address: "noreply@localhost"},
		JWTExpirationDelta: 10 * time.Minute,
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			UploadDir:       os.TempDir(),
			MaxUploadSize:   "2M",
		},
		Database: DatabaseConfig{Engine: EngineMemory},
		Log:      LogConfig{Level: "error", Format: "console"},
	}
}
