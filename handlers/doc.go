// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Sealed Poll API.

# Handler Types

Each handler is a struct with registry and config dependencies:

  - PollHandler: Poll listing, tally view and ledger download
  - AnswerHandler: Identity verification, answer submission and lookup

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(registry, cfg)
	answerHandler := handlers.NewAnswerHandler(registry, verifier, journal, cfg)

verifier and journal may be nil.

# Reading Polls

	GET /polls                 → ListPolls
	GET /polls/{name}          → GetPoll (JSON, or protobuf with Accept: application/x-protobuf)
	GET /polls/{name}/result   → GetLedger (the sealed ledger file)

# Answering

Voters identify with an identity secret, which never leaves the request:

	POST /polls/{name}/auth        → Auth (starts verification when a provider is configured)
	POST /polls/{name}/answers     → Submit (201 new, 200 already answered)
	POST /polls/{name}/lookup      → Lookup
	GET /polls/{name}/answers/{ak} → GetAnswer

With a verifier, Submit and Lookup require the order_ref returned by Auth.
An order reference is bound to the poll and anonymous key it was started for
and expires after ten minutes.

A personal_code turns the answer into a protected one: the ledger stores a
PO instead of the option index, and only a lookup with the same code
resolves it.

# Journal

New answers are mirrored to the journal as receipts. A journal failure is
logged and the answer still stands; the ledger file is authoritative.
*/
package handlers
