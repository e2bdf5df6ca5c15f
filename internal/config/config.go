// Package config assembles runtime settings from flags, the environment,
// and an optional .env file.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAddr       = ":3000"
	DefaultBackendURL = "http://localhost:8080"
	DefaultTimeout    = 10 * time.Second

	// minKeyLen is the shortest accepted session or CSRF key.
	minKeyLen = 32
)

// Config holds the settings of the invadmin server.
type Config struct {
	Addr           string
	LogPath        string
	BackendURL     string
	BackendTimeout time.Duration

	SessionKey   []byte
	CSRFKey      []byte // nil disables CSRF protection
	CookieSecure bool

	AdminUsername     string
	AdminPasswordHash string // empty disables the admin gate
	JWTSecret         string
}

// CSRFEnabled reports whether a CSRF key was configured.
func (c *Config) CSRFEnabled() bool {
	return len(c.CSRFKey) > 0
}

// Usage is printed for -h and flag errors.
const Usage = `Usage: invadmin [flags]
       invadmin hash-password <password>

Flags:
  -a, -addr <host:port>   listen address (default: :3000, env ADDR)
  -b, -backend <url>      inventory backend base URL (default: http://localhost:8080, env BACKEND_BASE_URL)
  -l, -log <path>         log file path (default: no file, env LOG_PATH)
  -h, -help               show this help and exit

Environment:
  SESSION_KEY             base64 session cookie key, at least 32 bytes
  CSRF_KEY                base64 CSRF key, enables CSRF protection
  COOKIE_SECURE           mark cookies Secure (true/false)
  ADMIN_USERNAME          admin login name (default: admin)
  ADMIN_PASSWORD_HASH     bcrypt hash, enables the admin login
  JWT_SECRET              admin session signing secret
  BACKEND_TIMEOUT         backend request timeout (default: 10s)
  ENV                     set to "production" to skip loading .env
`

// Load parses args and the environment. A .env file in the working
// directory is read first unless ENV=production; real environment
// variables take precedence over it, and flags over both.
func Load(args []string, output io.Writer) (*Config, error) {
	if os.Getenv("ENV") != "production" {
		loadDotEnv(".env")
	}

	cfg := &Config{
		Addr:              getEnv("ADDR", DefaultAddr),
		LogPath:           getEnv("LOG_PATH", ""),
		BackendURL:        getEnv("BACKEND_BASE_URL", DefaultBackendURL),
		CookieSecure:      getEnv("COOKIE_SECURE", "false") == "true",
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		BackendTimeout:    DefaultTimeout,
	}

	fs := flag.NewFlagSet("invadmin", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "")
	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	fs.Usage = func() { fmt.Fprint(output, Usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if err := validateBackendURL(cfg.BackendURL); err != nil {
		return nil, err
	}

	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q", v)
		}
		cfg.BackendTimeout = d
	}

	key, err := decodeKey("SESSION_KEY")
	if err != nil {
		return nil, err
	}
	if key == nil {
		slog.Warn("SESSION_KEY not set, generating a random key; sessions will not survive a restart")
		key = randomBytes(minKeyLen)
	}
	cfg.SessionKey = key

	if cfg.CSRFKey, err = decodeKey("CSRF_KEY"); err != nil {
		return nil, err
	}

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = hex.EncodeToString(randomBytes(minKeyLen))
	}

	return cfg, nil
}

// loadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load env file", "path", path, "error", err)
		}
		return
	}
	slog.Info("loaded env file", "path", path)
}

func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend URL %q: missing host", raw)
	}
	return nil
}

// decodeKey reads a base64 key from the environment. It returns nil when
// the variable is unset.
func decodeKey(name string) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("%s must decode to at least %d bytes", name, minKeyLen)
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read never returns an error on supported platforms.
		panic(err)
	}
	return b
}
