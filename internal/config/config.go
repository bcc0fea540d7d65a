package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/jrschumacher/rpkica/internal/logger"
	"github.com/spf13/viper"
)

const (
	EnvProd = "production"
	EnvDev  = "development"
	EnvTest = "test"
)

// Config holds application configuration loaded from environment variables or config file.
//
// The session-cache and ASPA fields cover the daemon's core tunables:
// cache TTL, renewal threshold, and new-object validity window.
type Config struct {
	AppEnv  string `mapstructure:"app_env" default:"development" validate:"required"`
	AppName string `mapstructure:"app_name" default:"rpkica" validate:"required"`

	// SessionCacheTTLSeconds bounds how long a decrypted session record
	// may be memoized. Must not exceed the shortest session lifetime an
	// operator is willing to keep resident after logout.
	SessionCacheTTLSeconds int64 `mapstructure:"session_cache_ttl_seconds" default:"30" validate:"required,min=1"`

	// SessionCacheKey is the shared symmetric key used to seal session
	// tokens. Never logged.
	SessionCacheKey string `secret:"true" mapstructure:"session_cache_key" validate:"required"`

	// AspaRenewThresholdDays, if non-zero, bounds renewal: only objects
	// whose not-after falls before now+threshold (now taken at each tick)
	// are regenerated by the housekeeping ticker. Zero means unconditional renewal every tick.
	AspaRenewThresholdDays int `mapstructure:"aspa_renew_threshold_days" default:"0"`

	// AspaNewValidityDays is the validity window stamped on newly
	// issued or reissued ASPA objects.
	AspaNewValidityDays int `mapstructure:"aspa_new_validity_days" default:"180" validate:"required,min=1"`

	// SerialLedgerPath is the sqlite database file backing the local,
	// non-authoritative serial-allocation ledger kept by the reference
	// Signer.
	SerialLedgerPath string `mapstructure:"serial_ledger_path" default:"./rpkica-serials.db"`

	// Logging
	LogLevel string `default:"INFO" validate:"oneof=TRACE DEBUG INFO WARN ERROR"`
}

// Load loads configuration from config file and environment variables using viper.
func Load() *Config {
	cfg := Config{}

	// Initialize viper
	v := viper.New()
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	// Set defaults for the config struct
	if err := defaults.Set(&cfg); err != nil {
		panic("failed to set struct defaults: " + err.Error())
	}

	// Bind env vars for each field
	typeOfCfg := reflect.TypeOf(cfg)
	for i := 0; i < typeOfCfg.NumField(); i++ {
		field := typeOfCfg.Field(i)
		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = toSnakeCase(field.Name)
		}
		v.BindEnv(key)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Error("Error read config file", "error", err)
		}
		logger.Warn("No config file found, using environment variables")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("Could not unmarshal config", "error", err)
	}

	logger.Info("Loaded config", "config", cfg.String())

	return &cfg
}

func Validate(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

// String returns a string representation of the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Name
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" {
			value = "***REDACTED***"
		}
		sb.WriteString(name + ": " + toString(value))
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// toString converts interface{} to string for String
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toSnakeCase converts CamelCase to snake_case
func toSnakeCase(str string) string {
	runes := []rune(str)
	var out []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				out = append(out, '_')
			}
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}
