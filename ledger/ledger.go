// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/sealed-poll/auth"
	"github.com/danielhkuo/sealed-poll/digest"
)

// Answer is the result of a submission or lookup.
type Answer struct {
	Timestamp   string
	AK          string
	OptionIndex int    // -1 when the option could not be resolved
	PO          string // set for protected entries
	Option      string // option text, empty when unresolved
	Resolved    bool
	IsPrior     bool // true when the answer was already in the log
	Seal        string
}

// Summary is a display snapshot of a ledger's tally.
type Summary struct {
	Options    []string
	Counts     []int
	Total      int
	LastAnswer string
}

// Percent returns the share of option ix in the total, 0 when there are no answers.
func (s Summary) Percent(ix int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Counts[ix]) * 100 / float64(s.Total)
}

// Ledger is the durable record of one poll. All mutations go through
// SubmitAnswer, which is serialized per ledger.
type Ledger struct {
	mu sync.RWMutex

	name    string
	title   string
	body    []string
	options []string
	tally   []int
	entries []Entry
	index   map[string]int // AK -> position in entries
	seal    string
	fresh   bool

	store Store
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to timestamp answers.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func newLedger(name, title string, body, options []string, opts ...Option) *Ledger {
	l := &Ledger{
		name:    name,
		title:   title,
		body:    body,
		options: options,
		tally:   make([]int, len(options)),
		index:   make(map[string]int),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open loads and verifies a ledger from store. A fresh poll is sealed by
// writing it back once.
func Open(name string, store Store, opts ...Option) (*Ledger, error) {
	data, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	l, err := Parse(name, data, opts...)
	if err != nil {
		return nil, err
	}
	l.store = store

	if l.fresh {
		if err := l.persistLocked(); err != nil {
			return nil, err
		}
		l.fresh = false
		slog.Info("sealed new poll", "poll", name, "seal", l.seal)
	}

	return l, nil
}

// Reload re-reads the ledger from its store, replacing the tally, log and seal.
// Title, body and options cannot change at runtime.
func (l *Ledger) Reload() error {
	if l.store == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.store.Load()
	if err != nil {
		return fmt.Errorf("load %s: %w", l.name, err)
	}
	disk, err := Parse(l.name, data)
	if err != nil {
		return err
	}
	if disk.fresh {
		return fmt.Errorf("%s: %w", l.name, corrupt("ledger lost its seal"))
	}
	if disk.title != l.title || disk.bodyText() != l.bodyText() || !slices.Equal(disk.options, l.options) {
		return fmt.Errorf("%s: %w", l.name, corrupt("poll content changed on disk"))
	}

	l.tally, l.entries, l.index, l.seal = disk.tally, disk.entries, disk.index, disk.seal
	return nil
}

// SubmitAnswer records an identity's answer, or returns the answer it already gave.
//
// The option is checked before anything else. A repeat submission returns the
// original answer with IsPrior set, whatever option it names, and changes nothing.
// A new answer updates the tally and log, reseals and persists before returning.
// When personalCode is non-empty the log stores a protected option instead of
// the option index.
func (l *Ledger) SubmitAnswer(identitySecret string, option int, personalCode string) (Answer, error) {
	// options are immutable after load
	if option < 0 || option >= len(l.options) {
		return Answer{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidOption, option, len(l.options))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ak := auth.DeriveAK(l.bodyText(), identitySecret)

	if ix, ok := l.index[ak]; ok {
		return l.answerLocked(l.entries[ix], personalCode, true), nil
	}

	entry := Entry{
		Timestamp: digest.FormatTimestamp(l.now()),
		AK:        ak,
		Option:    option,
	}
	if personalCode != "" {
		entry.Option = -1
		entry.PO = auth.DerivePO(ak, personalCode, l.options[option])
	}

	prevSeal := l.seal
	l.tally[option]++
	l.entries = append(l.entries, entry)
	l.index[ak] = len(l.entries) - 1
	l.seal = l.sealLocked()

	if err := l.persistLocked(); err != nil {
		// Roll back so memory matches the file that is still on disk
		l.tally[option]--
		l.entries = l.entries[:len(l.entries)-1]
		delete(l.index, ak)
		l.seal = prevSeal
		return Answer{}, err
	}

	return Answer{
		Timestamp:   entry.Timestamp,
		AK:          ak,
		OptionIndex: option,
		PO:          entry.PO,
		Option:      l.options[option],
		Resolved:    true,
		Seal:        l.seal,
	}, nil
}

// LookupAnswer finds the answer recorded for an identity secret.
func (l *Ledger) LookupAnswer(identitySecret, personalCode string) (Answer, bool) {
	return l.LookupAK(l.AK(identitySecret), personalCode)
}

// LookupAK finds the answer recorded under an anonymous key. Protected entries
// are resolved when personalCode matches; otherwise the option stays unresolved.
func (l *Ledger) LookupAK(ak, personalCode string) (Answer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ix, ok := l.index[ak]
	if !ok {
		return Answer{}, false
	}
	return l.answerLocked(l.entries[ix], personalCode, true), true
}

func (l *Ledger) answerLocked(e Entry, personalCode string, prior bool) Answer {
	a := Answer{
		Timestamp:   e.Timestamp,
		AK:          e.AK,
		OptionIndex: -1,
		PO:          e.PO,
		IsPrior:     prior,
		Seal:        l.seal,
	}

	ix := e.Option
	if e.Protected() {
		if personalCode == "" {
			return a
		}
		var found bool
		if ix, found = auth.RevealPO(e.PO, e.AK, personalCode, l.options); !found {
			return a
		}
	}

	a.OptionIndex = ix
	a.Option = l.options[ix]
	a.Resolved = true
	return a
}

// LastAnswerTimestamp returns the timestamp of the newest answer, or "".
func (l *Ledger) LastAnswerTimestamp() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].Timestamp
}

// AK derives the anonymous key an identity secret has on this poll.
func (l *Ledger) AK(identitySecret string) string {
	return auth.DeriveAK(l.bodyText(), identitySecret)
}

// Serialize renders the ledger in its file layout, seal included.
func (l *Ledger) Serialize() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.serializeLocked()
}

// Summary returns the tally together with the option labels.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{
		Options: append([]string(nil), l.options...),
		Counts:  append([]int(nil), l.tally...),
	}
	for _, n := range l.tally {
		s.Total += n
	}
	if len(l.entries) > 0 {
		s.LastAnswer = l.entries[len(l.entries)-1].Timestamp
	}
	return s
}

// Entries returns a copy of the answer log.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Ledger) Name() string  { return l.name }
func (l *Ledger) Title() string { return l.title }

// Body returns the question text, lines joined by newlines.
func (l *Ledger) Body() string { return l.bodyText() }

func (l *Ledger) Options() []string { return append([]string(nil), l.options...) }

func (l *Ledger) Tally() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]int(nil), l.tally...)
}

func (l *Ledger) Seal() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seal
}

// Len returns the number of recorded answers.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Ledger) bodyText() string {
	return strings.Join(l.body, "\n")
}

func (l *Ledger) persistLocked() error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(l.serializeLocked()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, l.name, err)
	}
	return nil
}
