package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "GODM"
	defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="
)

// Load builds a Config from, in increasing order of precedence, built-in
// defaults, an optional config file, GODM_* environment variables (a .env
// file in the working directory is honored) and command-line flags.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	fs := pflag.NewFlagSet("go-dm", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file")
	fs.String("addr", "localhost:8000", "server address")
	fs.String("driver", DriverPostgres, "store driver: postgres, memory or file")
	fs.String("dsn", "", "database connection string (falls back to POSTGRES_URL, DATABASE_URL)")
	fs.String("sslmode", "require", "sslmode applied when the DSN does not set one")
	fs.String("store-path", "go-dm.json", "snapshot path for the file driver")
	fs.String("signing-key", defaultSigningKey, "base64 encoded session signing key")
	fs.StringSlice("allowed-origins", nil, "comma-separated list of allowed origins for CORS")
	fs.Int("max-conns", 10, "maximum open database connections")
	fs.Duration("conn-max-lifetime", 30*time.Minute, "maximum lifetime of a pooled connection")
	fs.Bool("migrate", true, "apply schema migrations on start")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	dsn := v.GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("POSTGRES_URL")
	}
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}

	return NewConfig(Params{
		ServerAddr:      v.GetString("addr"),
		StoreDriver:     v.GetString("driver"),
		DatabaseDSN:     dsn,
		SSLMode:         v.GetString("sslmode"),
		StorePath:       v.GetString("store-path"),
		SigningSecret:   v.GetString("signing-key"),
		AllowedOrigins:  splitList(v.GetStringSlice("allowed-origins")),
		MaxConns:        v.GetInt("max-conns"),
		ConnMaxLifetime: v.GetDuration("conn-max-lifetime"),
		MigrateOnStart:  v.GetBool("migrate"),
		LogLevel:        v.GetString("log-level"),
		LogFormat:       v.GetString("log-format"),
	})
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
