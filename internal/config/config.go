// Package config loads settings from config.yml, the environment and .env.
//
// Precedence, highest first: PROFILEKEEPER_* environment variables (after
// .env is loaded), a config.yml found on the search path, the embedded
// defaults. Nested keys map to variables with dots replaced by underscores,
// e.g. storage.driver is PROFILEKEEPER_STORAGE_DRIVER.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmynk/profilekeeper/internal/profile"
)

//go:embed config.yml
var embeddedConfig []byte

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROFILEKEEPER"

// DevJWTSecret is the embedded default secret. It must not be used outside
// local development.
const DevJWTSecret = "dev-insecure-secret"

// Config mirrors config.yml. validate tags hold the startup checks.
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Auth struct {
		JWTSecret    string        `mapstructure:"jwtSecret" validate:"required"`
		TokenTTL     time.Duration `mapstructure:"tokenTTL" validate:"gt=0"`
		ChallengeTTL time.Duration `mapstructure:"challengeTTL" validate:"gt=0"`
		DevLogin     bool          `mapstructure:"devLogin"`
	} `mapstructure:"auth"`
	Storage struct {
		Driver string `mapstructure:"driver" validate:"oneof=memory sqlite postgres redis"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		Postgres struct {
			DSN string `mapstructure:"dsn"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"storage"`
	Accounts struct {
		StrictUpdates bool `mapstructure:"strictUpdates"`
	} `mapstructure:"accounts"`
	Profile struct {
		SalaryMin        uint64   `mapstructure:"salaryMin"`
		SalaryMax        uint64   `mapstructure:"salaryMax" validate:"omitempty,gtefield=SalaryMin"`
		MaxWorkplaceTags int      `mapstructure:"maxWorkplaceTags" validate:"min=0"`
		WorkplaceTags    []string `mapstructure:"workplaceTags"`
		MaxProfilePicKB  int      `mapstructure:"maxProfilePicKB" validate:"min=0"`
		MaxResumeKB      int      `mapstructure:"maxResumeKB" validate:"min=0"`
	} `mapstructure:"profile"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// Storage drivers accepted by storage.driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Load reads the configuration. searchPaths default to "." and "config".
func Load(searchPaths ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
		return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
	}

	if len(searchPaths) == 0 {
		searchPaths = []string{".", "config"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("No config file found, using embedded defaults")
	} else {
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with. Errors name the
// offending keys as they appear in config.yml.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: %s", configKey(fe), ruleMessage(fe)))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// configKey turns "Config.storage.driver" into "storage.driver".
func configKey(fe validator.FieldError) string {
	_, key, _ := strings.Cut(fe.Namespace(), ".")
	return key
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("%q is not one of %s", fe.Value(), fe.Param())
	case "gt":
		return "must be positive"
	case "min", "max":
		return fmt.Sprintf("%v is out of range", fe.Value())
	case "gtefield":
		// Param is the Go field name, e.g. SalaryMin.
		p := fe.Param()
		return "must not be below " + strings.ToLower(p[:1]) + p[1:]
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ProfileRules converts the profile settings to validation rules.
func (c Config) ProfileRules() profile.Rules {
	return profile.Rules{
		SalaryMin:          c.Profile.SalaryMin,
		SalaryMax:          c.Profile.SalaryMax,
		MaxWorkplaceTags:   c.Profile.MaxWorkplaceTags,
		WorkplaceTags:      c.Profile.WorkplaceTags,
		MaxProfilePicBytes: c.Profile.MaxProfilePicKB * 1024,
		MaxResumeBytes:     c.Profile.MaxResumeKB * 1024,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
