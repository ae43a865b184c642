// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Ext is the file extension of ledger files in a poll directory.
const Ext = ".txt"

// Witness is an out-of-file record of answers already accepted for a poll.
// The registry refuses to serve a ledger that lost any witnessed answer.
type Witness interface {
	RecordedKeys(ctx context.Context, poll string) ([]string, error)
}

// Registry holds every poll ledger of the process, keyed by name.
// It is populated once at startup; ledgers are never removed at runtime.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
	names   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[string]*Ledger)}
}

// LoadDir opens every *.txt ledger in dir. Any integrity failure aborts the
// load: a poll that fails verification must not be served.
// witness may be nil.
func LoadDir(ctx context.Context, dir string, witness Witness, opts ...Option) (*Registry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read poll directory: %w", err)
	}

	r := NewRegistry()
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), Ext) || strings.HasPrefix(f.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(f.Name(), Ext)

		l, err := Open(name, NewFileStore(filepath.Join(dir, f.Name())), opts...)
		if err != nil {
			return nil, err
		}
		if witness != nil {
			if err := checkWitness(ctx, l, witness); err != nil {
				return nil, err
			}
		}
		if err := r.Add(l); err != nil {
			return nil, err
		}

		slog.Info("poll loaded", "poll", name, "answers", l.Len(), "seal", l.Seal())
	}

	return r, nil
}

func checkWitness(ctx context.Context, l *Ledger, witness Witness) error {
	keys, err := witness.RecordedKeys(ctx, l.Name())
	if err != nil {
		return fmt.Errorf("%s: read witness: %w", l.Name(), err)
	}
	for _, ak := range keys {
		if _, ok := l.LookupAK(ak, ""); !ok {
			return fmt.Errorf("%s: %w: %s", l.Name(), ErrRolledBack, ak)
		}
	}
	return nil
}

// Add registers a ledger under its name.
func (r *Registry) Add(l *Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ledgers[l.Name()]; exists {
		return fmt.Errorf("poll %q registered twice", l.Name())
	}
	r.ledgers[l.Name()] = l
	r.names = append(r.names, l.Name())
	sort.Strings(r.names)
	return nil
}

// Get returns the ledger for name.
func (r *Registry) Get(name string) (*Ledger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[name]
	return l, ok
}

// List returns all ledgers ordered by name.
func (r *Registry) List() []*Ledger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Ledger, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.ledgers[name])
	}
	return out
}

// Reload re-reads one ledger from disk.
func (r *Registry) Reload(name string) error {
	l, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return l.Reload()
}
