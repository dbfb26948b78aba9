package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverFile     = "file"
)

type Config struct {
	ServerAddr      string
	StoreDriver     string
	DatabaseDSN     string
	StorePath       string
	SigningKey      []byte
	AllowedOrigins  []string
	MaxConns        int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
	LogLevel        string
	LogFormat       string

	// DefaultSigningKey is set when SigningKey is the built-in development
	// key, which anyone can use to forge sessions.
	DefaultSigningKey bool
}

// Params holds the raw, unvalidated values NewConfig builds a Config from.
type Params struct {
	ServerAddr      string
	StoreDriver     string
	DatabaseDSN     string
	SSLMode         string
	StorePath       string
	SigningSecret   string
	AllowedOrigins  []string
	MaxConns        int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
	LogLevel        string
	LogFormat       string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key")
	}
	return key, nil
}

func NewConfig(p Params) (*Config, error) {
	if p.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if p.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(p.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	cfg := &Config{
		ServerAddr:      p.ServerAddr,
		StoreDriver:     strings.ToLower(p.StoreDriver),
		StorePath:       p.StorePath,
		SigningKey:      signingKey,
		AllowedOrigins:  p.AllowedOrigins,
		MaxConns:        p.MaxConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
		MigrateOnStart:  p.MigrateOnStart,
		LogLevel:        p.LogLevel,
		LogFormat:       p.LogFormat,

		DefaultSigningKey: p.SigningSecret == defaultSigningKey,
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverPostgres
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if p.DatabaseDSN == "" {
			return nil, fmt.Errorf("database DSN cannot be empty")
		}
		dsn, err := NormalizeDSN(p.DatabaseDSN, p.SSLMode)
		if err != nil {
			return nil, fmt.Errorf("normalize database DSN: %w", err)
		}
		cfg.DatabaseDSN = dsn
	case DriverFile:
		if p.StorePath == "" {
			return nil, fmt.Errorf("store path cannot be empty for the file driver")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", p.StoreDriver)
	}

	return cfg, nil
}

var kvSSLMode = regexp.MustCompile(`(^|\s)sslmode\s*=`)

// NormalizeDSN validates a PostgreSQL connection string with lib/pq's own
// parser and fills in sslmode when the string does not set one. URLs and
// libpq key/value strings are both kept in their own form; only the
// postgresql:// scheme is rewritten to postgres://.
func NormalizeDSN(dsn, defaultSSLMode string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}

	if rest, ok := strings.CutPrefix(dsn, "postgresql://"); ok {
		dsn = "postgres://" + rest
	}
	isURL := strings.HasPrefix(dsn, "postgres://")
	if !isURL && strings.Contains(dsn, "://") {
		return "", fmt.Errorf("unsupported DSN scheme")
	}

	if _, err := pq.NewConnector(dsn); err != nil {
		return "", fmt.Errorf("parse DSN: %w", err)
	}

	if defaultSSLMode == "" {
		return dsn, nil
	}

	if isURL {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse DSN: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") != "" {
			return dsn, nil
		}
		q.Set("sslmode", defaultSSLMode)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if !kvSSLMode.MatchString(dsn) {
		dsn += " sslmode=" + defaultSSLMode
	}
	return dsn, nil
}
