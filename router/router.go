// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/sealed-poll/cliparse"
	"github.com/danielhkuo/sealed-poll/handlers"
	"github.com/danielhkuo/sealed-poll/identity"
	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/middleware"
)

// NewRouter wires every endpoint. verifier and journal may be nil.
func NewRouter(registry *ledger.Registry, verifier identity.Verifier, journal handlers.Journal, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(registry, cfg)
	answerHandler := handlers.NewAnswerHandler(registry, verifier, journal, cfg)

	handle := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.NoCache(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll state (public)
	mux.HandleFunc("GET /polls", handle(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/{name}", handle(pollHandler.GetPoll))
	mux.HandleFunc("GET /polls/{name}/result", handle(pollHandler.GetLedger))

	// Answering (identity secret in the body)
	mux.HandleFunc("POST /polls/{name}/auth", handle(answerHandler.Auth))
	mux.HandleFunc("POST /polls/{name}/answers", handle(answerHandler.Submit))
	mux.HandleFunc("POST /polls/{name}/lookup", handle(answerHandler.Lookup))
	mux.HandleFunc("GET /polls/{name}/answers/{ak}", handle(answerHandler.GetAnswer))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sealed-poll API v1"))
	})

	return mux
}
