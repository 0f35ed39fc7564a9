// Package config loads the backend configuration.
//
// Values are layered: struct defaults, then an optional YAML file
// (CONFIG_PATH, config.yaml or config.yml), then environment variables.
// A .env file in the working directory is loaded into the environment
// first without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port           int      `koanf:"port" validate:"min=1,max=65535"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes" validate:"gt=0"`
	CORSOrigins    []string `koanf:"cors_origins"`
}

// Addr is the listen address derived from Port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	URL         string `koanf:"url" validate:"required"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

type StorageConfig struct {
	Backend     string `koanf:"backend" validate:"oneof=local minio"`
	Dir         string `koanf:"dir" validate:"required_if=Backend local"`
	S3Endpoint  string `koanf:"s3_endpoint" validate:"required_if=Backend minio"`
	S3AccessKey string `koanf:"s3_access_key" validate:"required_if=Backend minio"`
	S3SecretKey string `koanf:"s3_secret_key" validate:"required_if=Backend minio"`
	S3Bucket    string `koanf:"s3_bucket" validate:"required_if=Backend minio"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host" validate:"required_if=Enabled true"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console text"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           2024,
			MaxUploadBytes: 50 << 20,
			CORSOrigins:    []string{"*"},
		},
		Database: DatabaseConfig{
			AutoMigrate: true,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "uploads",
		},
		Mail: MailConfig{
			Enabled: true,
			Host:    "smtp.gmail.com",
			Port:    465,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, config file and environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// DATABASE_URL is accepted as an alias; DB_CONNECT_STRING wins.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":              "server.port",
	"max_upload_bytes":  "server.max_upload_bytes",
	"cors_origins":      "server.cors_origins",
	"db_connect_string": "database.url",
	"db_auto_migrate":   "database.auto_migrate",
	"storage_backend":   "storage.backend",
	"upload_dir":        "storage.dir",
	"s3_endpoint":       "storage.s3_endpoint",
	"s3_access_key":     "storage.s3_access_key",
	"s3_secret_key":     "storage.s3_secret_key",
	"s3_bucket":         "storage.s3_bucket",
	"mail_enabled":      "mail.enabled",
	"smtp_host":         "mail.host",
	"smtp_port":         "mail.port",
	"email":             "mail.username",
	"pass":              "mail.password",
	"mail_from":         "mail.from",
	"log_level":         "log.level",
	"log_format":        "log.format",
}

// envTransformFunc maps known environment variables to config paths.
// Unknown variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
