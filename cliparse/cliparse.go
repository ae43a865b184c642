package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	PollDir      string
	JournalURL   string
	DatabaseType string
	AuthURL      string
	TLSCertFile  string
	TLSKeyFile   string

	// RequirePersonalCode rejects submissions without a personal code, so
	// every answer in the log is protected.
	RequirePersonalCode bool
}

// TLSEnabled reports whether the server should listen with TLS.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// LoadEnv reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var requireCode string

	fs := flag.NewFlagSet("sealed-poll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.PollDir, "dir", "", "Directory of poll ledger files")
	fs.StringVar(&cfg.JournalURL, "d", "", "Seal journal database URL (optional)")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Journal database type (sqlite or postgres)")
	fs.StringVar(&cfg.AuthURL, "auth-url", "", "Identity provider URL (empty or 'test' disables verification)")
	fs.StringVar(&cfg.TLSCertFile, "cert", "", "TLS certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "key", "", "TLS private key file")
	fs.StringVar(&requireCode, "require-code", "", "Require a personal code on every answer (true/false)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}

	if cfg.PollDir == "" {
		cfg.PollDir = os.Getenv("POLL_DIR")
		if cfg.PollDir == "" {
			cfg.PollDir = "polls"
		}
	}

	// The journal is optional
	if cfg.JournalURL == "" {
		cfg.JournalURL = os.Getenv("JOURNAL_URL")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}

	if cfg.AuthURL == "" {
		cfg.AuthURL = os.Getenv("AUTH_URL")
	}

	if cfg.TLSCertFile == "" {
		cfg.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if cfg.TLSKeyFile == "" {
		cfg.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return Config{}, errors.New("TLS requires both -cert and -key")
	}

	if requireCode == "" {
		requireCode = os.Getenv("REQUIRE_PERSONAL_CODE")
	}
	if requireCode != "" {
		v, err := strconv.ParseBool(requireCode)
		if err != nil {
			return Config{}, errors.New("invalid REQUIRE_PERSONAL_CODE value")
		}
		cfg.RequirePersonalCode = v
	}

	return cfg, nil
}
