// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Sealed Poll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(registry, verifier, journal, cfg)

# Endpoints

Health:

	GET /health

Poll state (public):

	GET /polls               - List polls
	GET /polls/{name}        - Question, tally and seal
	GET /polls/{name}/result - Sealed ledger file

Answering (identity secret in the request body):

	POST /polls/{name}/auth         - Start identity verification
	POST /polls/{name}/answers      - Submit an answer
	POST /polls/{name}/lookup       - Look up one's own answer
	GET  /polls/{name}/answers/{ak} - Check an anonymous key

Every poll route is wrapped in request logging and no-cache headers.
*/
package router
