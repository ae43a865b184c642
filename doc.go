// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Sealed Poll API server.

Sealed Poll runs single-question polls whose answers are kept in a plain text
ledger per poll. Each voter is recorded under an anonymous key derived from
their identity secret, answers cannot be changed once given, and a seal over
the whole file exposes any edit made outside the server.

# Starting the Server

Poll files live in a directory, one <name>.txt per poll:

	go run . -dir polls

With a journal and an identity provider:

	JOURNAL_URL=journal.db AUTH_URL=https://idp.example go run .

Settings are read from flags, then the environment, then a .env file in the
working directory.

# Configuration

  - PORT (-p): Server port (default: 3318)
  - POLL_DIR (-dir): Directory of ledger files (default: polls)
  - JOURNAL_URL (-d): Journal database, a SQLite DSN or postgres:// URL
  - DATABASE_TYPE (-t): Force sqlite or postgres for the journal
  - AUTH_URL (-auth-url): Identity provider; empty or "test" disables it
  - TLS_CERT_FILE (-cert), TLS_KEY_FILE (-key): Serve HTTPS
  - REQUIRE_PERSONAL_CODE (-require-code): Reject unprotected answers

The server refuses to start if any ledger fails verification, or if the
journal holds an answer that a ledger file lost.

# Architecture

  - ledger: Ledger files, sealing, answer submission, poll registry
  - auth: Anonymous key and protected option derivation
  - digest: Hashing and fixed-width encodings
  - db: Answer journal (SQLite or PostgreSQL)
  - identity: Identity provider client
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - cliparse: Configuration parsing

The pollctl command (cmd/pollctl) reads and answers a ledger file directly.
*/
package main
