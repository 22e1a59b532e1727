// Package config provides configuration management for the bot.
// It loads environment variables (and an optional config.yaml) and makes them
// available throughout the application.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string

	// Storage
	StoreDriver string
	SQLitePath  string
	MongoDBURL  string
	DBName      string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port            string
	WebAllowedHosts string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
	GuildsWebhook     string

	// Sentry
	SentryDSN string

	// Moderation
	AdminRoleID       string
	MuteRoleID        string
	BirthdayRoleID    string
	SuggestionAdminID string

	// Ban appeals
	AppealGuildID      string
	AppealCategoryID   string
	AppealLogChannelID string

	// Timers
	MutePollInterval         time.Duration
	BirthdayPollInterval     time.Duration
	BirthdayRolePollInterval time.Duration
	SchedulerWarmup          time.Duration
	BirthdayCatchUp          time.Duration
	ConfirmTimeout           time.Duration
	AppealReasonTimeout      time.Duration
	AppealCloseDelay         time.Duration
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// binding maps a config key to its environment variable and default value.
type binding struct {
	key      string
	env      string
	fallback interface{}
}

var bindings = []binding{
	{"bot_token", "botToken", ""},
	{"dev_guild_id", "devGuildId", ""},

	{"store_driver", "storeDriver", "sqlite"},
	{"sqlite_path", "sqlitePath", "data/moderation.db"},
	{"mongodb_url", "mongodbUrl", "mongodb://localhost:27017"},
	{"db_name", "dbName", "PancyMod"},

	{"mqtt_host", "MQTT_Host", "localhost"},
	{"mqtt_port", "MQTT_Port", "1883"},
	{"mqtt_user", "MQTT_User", ""},
	{"mqtt_password", "MQTT_Password", ""},

	{"port", "PORT", "3000"},
	{"web_allowed_hosts", "webAllowedHosts", `^(.+\.)?miau\.media|^localhost(:\d+)?$`},

	{"environment", "enviroment", "dev"},

	{"error_webhook", "errorWebhook", ""},
	{"logs_webhook", "logsWebhook", ""},
	{"logs_web_server_webhook", "logsWebServerWebhook", ""},
	{"guilds_webhook", "guildsWebhook", ""},

	{"sentry_dsn", "sentryDsn", ""},

	{"admin_role_id", "adminRoleId", ""},
	{"mute_role_id", "muteRoleId", ""},
	{"birthday_role_id", "birthdayRoleId", ""},
	{"suggestion_admin_id", "suggestionAdminId", ""},

	{"appeal_guild_id", "appealGuildId", ""},
	{"appeal_category_id", "appealCategoryId", ""},
	{"appeal_log_channel_id", "appealLogChannelId", ""},

	{"mute_poll_interval", "mutePollInterval", "30s"},
	{"birthday_poll_interval", "birthdayPollInterval", "1m"},
	{"birthday_role_poll_interval", "birthdayRolePollInterval", "5m"},
	{"scheduler_warmup", "schedulerWarmup", "5s"},
	{"birthday_catch_up", "birthdayCatchUp", "1h"},
	{"confirm_timeout", "confirmTimeout", "30s"},
	{"appeal_reason_timeout", "appealReasonTimeout", "300s"},
	{"appeal_close_delay", "appealCloseDelay", "5s"},
}

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// newViper builds a viper instance with every key bound to its env variable.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		_ = v.BindEnv(b.key, b.env)
	}
	return v
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error leyendo config.yaml: %v\n", err)
		}
	}

	cfg = &Config{
		BotToken:   v.GetString("bot_token"),
		DevGuildID: v.GetString("dev_guild_id"),

		StoreDriver: strings.ToLower(v.GetString("store_driver")),
		SQLitePath:  v.GetString("sqlite_path"),
		MongoDBURL:  v.GetString("mongodb_url"),
		DBName:      v.GetString("db_name"),

		MQTTHost:     v.GetString("mqtt_host"),
		MQTTPort:     v.GetString("mqtt_port"),
		MQTTUser:     v.GetString("mqtt_user"),
		MQTTPassword: v.GetString("mqtt_password"),

		Port:            v.GetString("port"),
		WebAllowedHosts: v.GetString("web_allowed_hosts"),

		Environment: v.GetString("environment"),

		ErrorWebhook:      v.GetString("error_webhook"),
		LogsWebhook:       v.GetString("logs_webhook"),
		LogsWebServerHook: v.GetString("logs_web_server_webhook"),
		GuildsWebhook:     v.GetString("guilds_webhook"),

		SentryDSN: v.GetString("sentry_dsn"),

		AdminRoleID:       v.GetString("admin_role_id"),
		MuteRoleID:        v.GetString("mute_role_id"),
		BirthdayRoleID:    v.GetString("birthday_role_id"),
		SuggestionAdminID: v.GetString("suggestion_admin_id"),

		AppealGuildID:      v.GetString("appeal_guild_id"),
		AppealCategoryID:   v.GetString("appeal_category_id"),
		AppealLogChannelID: v.GetString("appeal_log_channel_id"),

		MutePollInterval:         v.GetDuration("mute_poll_interval"),
		BirthdayPollInterval:     v.GetDuration("birthday_poll_interval"),
		BirthdayRolePollInterval: v.GetDuration("birthday_role_poll_interval"),
		SchedulerWarmup:          v.GetDuration("scheduler_warmup"),
		BirthdayCatchUp:          v.GetDuration("birthday_catch_up"),
		ConfirmTimeout:           v.GetDuration("confirm_timeout"),
		AppealReasonTimeout:      v.GetDuration("appeal_reason_timeout"),
		AppealCloseDelay:         v.GetDuration("appeal_close_delay"),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	// Use sync.Once to ensure thread-safe initialization if Load wasn't called
	cfgOnce.Do(loadConfig)
	return cfg
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// UseMongo reports whether the document store was selected.
func (c *Config) UseMongo() bool {
	return c.StoreDriver == "mongo"
}

// Validate returns an error describing every required key that is missing
// or malformed. Optional features only produce warnings (see Warnings).
func (c *Config) Validate() error {
	var problems []string
	if c.BotToken == "" {
		problems = append(problems, "botToken es obligatorio")
	}
	if c.StoreDriver != "sqlite" && c.StoreDriver != "mongo" {
		problems = append(problems, fmt.Sprintf("storeDriver desconocido: %q", c.StoreDriver))
	}
	if c.StoreDriver == "sqlite" && c.SQLitePath == "" {
		problems = append(problems, "sqlitePath es obligatorio con storeDriver=sqlite")
	}
	for name, d := range map[string]time.Duration{
		"mutePollInterval":         c.MutePollInterval,
		"birthdayPollInterval":     c.BirthdayPollInterval,
		"birthdayRolePollInterval": c.BirthdayRolePollInterval,
	} {
		if d <= 0 {
			problems = append(problems, name+" debe ser mayor que cero")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuración inválida: %s", strings.Join(problems, "; "))
}

// Warnings lists optional settings whose absence disables a feature.
func (c *Config) Warnings() []string {
	var out []string
	if c.MuteRoleID == "" {
		out = append(out, "muteRoleId no configurado: /mod mute y la expiración de silencios no funcionarán")
	}
	if c.BirthdayRoleID == "" {
		out = append(out, "birthdayRoleId no configurado: no se asignará rol de cumpleaños")
	}
	if c.AdminRoleID == "" {
		out = append(out, "adminRoleId no configurado: se usarán solo los permisos de Discord")
	}
	if c.AppealGuildID == "" || c.AppealCategoryID == "" {
		out = append(out, "apelaciones de ban deshabilitadas (appealGuildId/appealCategoryId)")
	}
	return out
}

// AppealsEnabled reports whether the ban appeal relay is configured.
func (c *Config) AppealsEnabled() bool {
	return c.AppealGuildID != "" && c.AppealCategoryID != ""
}
