package core

import (
	"log"
	"net"
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
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		FrontendBaseURL string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool

		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	AuthConfig struct {
		// IdentitySecret verifies tokens issued by the identity provider.
		IdentitySecret string
		Issuer         string
	}

	RegistrationConfig struct {
		CreditLimit int
	}

	AttendanceConfig struct {
		ShortageThreshold   int
		GoodThreshold       int
		ReminderSchedule    string
		DisableReminderJobs bool
	}

	DatingConfig struct {
		LikeProbability      float64
		SuperLikeProbability float64
		ReplyDelay           time.Duration
		SwipesPerMinute      float64
		SwipeBurst           int
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string

		SendgridApiKey   string
		DefaultFromEmail mail.Address
		InviteTimeout    time.Duration

		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		Auth         AuthConfig
		Registration RegistrationConfig
		Attendance   AttendanceConfig
		Dating       DatingConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Kampus")
	v.SetDefault("secretKey", "4r-#kq9w)xv1$c7=mz&ua2h(eb!t)#*p3(#yg8h^$cegk2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "Kampus")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("inviteTimeout", 7*24*time.Hour)

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "kampus")
	v.SetDefault("databaseUser", "kampus")
	v.SetDefault("databasePassword", "kampus")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTls", true)
	v.SetDefault("databaseMaxOpenConns", 20)
	v.SetDefault("databaseMaxIdleConns", 5)
	v.SetDefault("databaseConnMaxLifetime", 30*time.Minute)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDb", 0)

	v.SetDefault("identitySecret", "identity-provider-shared-secret")
	v.SetDefault("identityIssuer", "")

	v.SetDefault("creditLimit", 24)

	v.SetDefault("attendanceShortageThreshold", 75)
	v.SetDefault("attendanceGoodThreshold", 85)
	v.SetDefault("attendanceReminderSchedule", "0 8 * * *")
	v.SetDefault("attendanceDisableReminderJobs", false)

	v.SetDefault("likeProbability", 0.6)
	v.SetDefault("superLikeProbability", 0.9)
	v.SetDefault("replyDelay", 1500*time.Millisecond)
	v.SetDefault("swipesPerMinute", 60.0)
	v.SetDefault("swipeBurst", 20)
}

// NewConfig loads the configuration of the current ENV (DEV by default)
// from defaults, an optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
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

	return fromViper(env, v)
}

func fromViper(env string, v *viper.Viper) *Config {
	return &Config{
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		InviteTimeout: v.GetDuration("inviteTimeout"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Port:            v.GetString("serverPort"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			FrontendBaseURL: v.GetString("frontendBaseUrl"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTls"),

			MaxOpenConns:    v.GetInt("databaseMaxOpenConns"),
			MaxIdleConns:    v.GetInt("databaseMaxIdleConns"),
			ConnMaxLifetime: v.GetDuration("databaseConnMaxLifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDb"),
		},
		Auth: AuthConfig{
			IdentitySecret: v.GetString("identitySecret"),
			Issuer:         v.GetString("identityIssuer"),
		},
		Registration: RegistrationConfig{
			CreditLimit: v.GetInt("creditLimit"),
		},
		Attendance: AttendanceConfig{
			ShortageThreshold:   v.GetInt("attendanceShortageThreshold"),
			GoodThreshold:       v.GetInt("attendanceGoodThreshold"),
			ReminderSchedule:    v.GetString("attendanceReminderSchedule"),
			DisableReminderJobs: v.GetBool("attendanceDisableReminderJobs"),
		},
		Dating: DatingConfig{
			LikeProbability:      v.GetFloat64("likeProbability"),
			SuperLikeProbability: v.GetFloat64("superLikeProbability"),
			ReplyDelay:           v.GetDuration("replyDelay"),
			SwipesPerMinute:      v.GetFloat64("swipesPerMinute"),
			SwipeBurst:           v.GetInt("swipeBurst"),
		},
	}
}

// NewTestConfig returns the default configuration in TEST mode, without touching the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("attendanceDisableReminderJobs", true)
	v.Set("replyDelay", time.Duration(0))
	return fromViper("TEST", v)
}
