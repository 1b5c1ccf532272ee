package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	SMSConfig struct {
		BaseURL  string
		APIKey   string
		Username string
		SenderID string
	}

	FeesConfig struct {
		Currency string
		Paybill  string
	}

	ChatConfig struct {
		MaxMessageLen int
		RateLimit     int
		RateWindow    time.Duration
	}

	NotificationConfig struct {
		LogBodyMaxLen int
		SweepBatch    int
		ClaimLease    time.Duration
		MaxAttempts   int
		RetryDelay    time.Duration
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		SMS          SMSConfig
		Fees         FeesConfig
		Chat         ChatConfig
		Notification NotificationConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig reads the app configuration from defaults, `config/.env.<env>` and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Campus")
	v.SetDefault("secretKey", "z7k%m2-qa)w9e$+1=lx&uoz4(b!p)#*r8(#yf3h^$cufn6dny")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "campus")
	v.SetDefault("dbUser", "campus")
	v.SetDefault("dbPassword", "campus")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("smsBaseURL", "https://api.africastalking.com")
	v.SetDefault("smsApiKey", "")
	v.SetDefault("smsUsername", "sandbox")
	v.SetDefault("smsSenderID", "")

	v.SetDefault("feesCurrency", "KES")
	v.SetDefault("feesPaybill", "247247")

	v.SetDefault("chatMaxMessageLen", 2000)
	v.SetDefault("chatRateLimit", 20)
	v.SetDefault("chatRateWindow", time.Minute)

	v.SetDefault("notificationLogBodyMaxLen", 500)
	v.SetDefault("notificationSweepBatch", 100)
	v.SetDefault("notificationClaimLease", 10*time.Minute)
	v.SetDefault("notificationMaxAttempts", 3)
	v.SetDefault("notificationRetryDelay", 15*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
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
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Address:            v.GetString("serverAddress"),
			DebugHost:          v.GetString("serverDebugHost"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		SMS: SMSConfig{
			BaseURL:  strings.TrimRight(v.GetString("smsBaseURL"), "/"),
			APIKey:   v.GetString("smsApiKey"),
			Username: v.GetString("smsUsername"),
			SenderID: v.GetString("smsSenderID"),
		},
		Fees: FeesConfig{
			Currency: v.GetString("feesCurrency"),
			Paybill:  v.GetString("feesPaybill"),
		},
		Chat: ChatConfig{
			MaxMessageLen: v.GetInt("chatMaxMessageLen"),
			RateLimit:     v.GetInt("chatRateLimit"),
			RateWindow:    v.GetDuration("chatRateWindow"),
		},
		Notification: NotificationConfig{
			LogBodyMaxLen: v.GetInt("notificationLogBodyMaxLen"),
			SweepBatch:    v.GetInt("notificationSweepBatch"),
			ClaimLease:    v.GetDuration("notificationClaimLease"),
			MaxAttempts:   v.GetInt("notificationMaxAttempts"),
			RetryDelay:    v.GetDuration("notificationRetryDelay"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no env lookups, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Campus",
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "noreply@campus.test",
		Server: ServerConfig{
			Address:            ":0",
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Fees: FeesConfig{
			Currency: "KES",
			Paybill:  "247247",
		},
		Chat: ChatConfig{
			MaxMessageLen: 2000,
			RateLimit:     20,
			RateWindow:    time.Minute,
		},
		Notification: NotificationConfig{
			LogBodyMaxLen: 500,
			SweepBatch:    100,
			ClaimLease:    10 * time.Minute,
			MaxAttempts:   3,
			RetryDelay:    15 * time.Minute,
		},
	}
}
