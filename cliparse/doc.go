// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - PollDir: Directory holding the *.txt ledgers (default: polls)
  - JournalURL: Seal journal database, SQLite path or postgres:// URL (optional)
  - DatabaseType: sqlite or postgres, inferred from JournalURL when empty
  - AuthURL: Identity provider base URL (optional)
  - TLSCertFile, TLSKeyFile: Serve HTTPS when both are set
  - RequirePersonalCode: Reject answers without a personal code

# CLI Flags

	-p             Server port
	-dir           Poll directory
	-d             Journal URL
	-t             Journal database type
	-auth-url      Identity provider URL
	-cert, -key    TLS certificate and key
	-require-code  Require personal codes (true/false)

# Environment Variables

Flags fall back to environment variables:

	PORT                   → -p
	POLL_DIR               → -dir
	JOURNAL_URL            → -d
	DATABASE_TYPE          → -t
	AUTH_URL               → -auth-url
	TLS_CERT_FILE          → -cert
	TLS_KEY_FILE           → -key
	REQUIRE_PERSONAL_CODE  → -require-code

CLI flags take precedence over environment variables. LoadEnv reads a .env
file into the environment first (github.com/joho/godotenv); variables that
are already set win over the file.

# Validation

ParseFlags returns an error if:

  - PORT is not a valid port number
  - only one of -cert and -key is given
  - REQUIRE_PERSONAL_CODE is not a boolean
*/
package cliparse
