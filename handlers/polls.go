// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielhkuo/sealed-poll/cliparse"
	"github.com/danielhkuo/sealed-poll/digest"
	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/middleware"
	"github.com/danielhkuo/sealed-poll/models"
)

// ProtobufContentType selects the protobuf encoding of the poll view.
const ProtobufContentType = "application/x-protobuf"

type PollHandler struct {
	registry *ledger.Registry
	cfg      cliparse.Config
	now      func() time.Time
}

func NewPollHandler(registry *ledger.Registry, cfg cliparse.Config) *PollHandler {
	return &PollHandler{registry: registry, cfg: cfg, now: time.Now}
}

// ListPolls handles GET /polls
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls := []models.PollSummary{}
	for _, l := range h.registry.List() {
		polls = append(polls, models.PollSummary{
			Name:  l.Name(),
			Title: l.Title(),
			Total: l.Len(),
		})
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListPollsResponse{Polls: polls})
}

// GetPoll handles GET /polls/{name}
// Returns the question, the running tally and the current seal.
// Responds with a protobuf Struct when the client accepts application/x-protobuf.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	view := h.buildView(l)

	if strings.Contains(r.Header.Get("Accept"), ProtobufContentType) {
		writeProtobufView(w, view)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, view)
}

// GetLedger handles GET /polls/{name}/result
// Returns the sealed ledger file, so anyone can recompute tally and seal.
func (h *PollHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	l, ok := getLedger(w, r, h.registry)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+l.Name()+ledger.Ext+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(l.Serialize()); err != nil {
		slog.Error("failed to write ledger", "poll", l.Name(), "error", err)
	}
}

func (h *PollHandler) buildView(l *ledger.Ledger) models.PollView {
	summary := l.Summary()

	view := models.PollView{
		Name:    l.Name(),
		Title:   l.Title(),
		Body:    l.Body(),
		Options: make([]models.OptionResult, len(summary.Options)),
		Total:   summary.Total,
		Seal:    l.Seal(),
	}
	for ix, label := range summary.Options {
		view.Options[ix] = models.OptionResult{
			Index:   ix,
			Label:   label,
			Count:   summary.Counts[ix],
			Percent: summary.Percent(ix),
		}
	}

	if summary.LastAnswer != "" {
		view.LastUpdated = summary.LastAnswer
		if ts, err := digest.ParseTimestamp(summary.LastAnswer); err == nil {
			view.LastUpdatedAgo = humanize.RelTime(ts, h.now(), "ago", "from now")
		}
	}

	return view
}

func writeProtobufView(w http.ResponseWriter, view models.PollView) {
	options := make([]any, len(view.Options))
	for ix, o := range view.Options {
		options[ix] = map[string]any{
			"index":   o.Index,
			"label":   o.Label,
			"count":   o.Count,
			"percent": o.Percent,
		}
	}

	st, err := structpb.NewStruct(map[string]any{
		"name":             view.Name,
		"title":            view.Title,
		"body":             view.Body,
		"options":          options,
		"total":            view.Total,
		"last_updated":     view.LastUpdated,
		"last_updated_ago": view.LastUpdatedAgo,
		"seal":             view.Seal,
	})
	if err != nil {
		slog.Error("failed to build protobuf view", "poll", view.Name, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to encode poll")
		return
	}

	data, err := proto.Marshal(st)
	if err != nil {
		slog.Error("failed to marshal protobuf view", "poll", view.Name, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to encode poll")
		return
	}

	w.Header().Set("Content-Type", ProtobufContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write protobuf view", "poll", view.Name, "error", err)
	}
}

// getLedger resolves the {name} path value, writing a 404 when the poll is unknown.
func getLedger(w http.ResponseWriter, r *http.Request, registry *ledger.Registry) (*ledger.Ledger, bool) {
	name := r.PathValue("name")
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll name is required")
		return nil, false
	}

	l, ok := registry.Get(name)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return nil, false
	}
	return l, true
}
