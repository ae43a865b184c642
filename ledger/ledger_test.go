// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/sealed-poll/auth"
	"github.com/danielhkuo/sealed-poll/digest"
)

const freshPoll = "Boat\nShould the club buy a new boat?\n\nYes\nNo\n"

type memStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  error
}

func (s *memStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...), nil
}

func (s *memStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data = append([]byte(nil), data...)
	s.saves++
	return nil
}

func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func openFresh(t *testing.T) (*Ledger, *memStore) {
	t.Helper()
	store := &memStore{data: []byte(freshPoll)}
	l, err := Open("boat", store, WithClock(stepClock()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return l, store
}

func TestYesNoScenario(t *testing.T) {
	l, store := openFresh(t)

	if got := l.Tally(); got[0] != 0 || got[1] != 0 {
		t.Fatalf("initial tally = %v, want [0 0]", got)
	}

	first, err := l.SubmitAnswer("alice", 0, "")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if first.IsPrior {
		t.Error("first answer marked as prior")
	}
	if first.Option != "Yes" || first.OptionIndex != 0 {
		t.Errorf("first answer option = %q (%d), want Yes (0)", first.Option, first.OptionIndex)
	}
	if got := l.Tally(); got[0] != 1 || got[1] != 0 {
		t.Errorf("tally after first = %v, want [1 0]", got)
	}
	if l.Len() != 1 {
		t.Errorf("log length = %d, want 1", l.Len())
	}

	second, err := l.SubmitAnswer("alice", 1, "")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if !second.IsPrior {
		t.Error("repeat answer not marked as prior")
	}
	if second.Option != "Yes" {
		t.Errorf("repeat answer option = %q, want original Yes", second.Option)
	}
	if second.AK != first.AK || second.Timestamp != first.Timestamp {
		t.Error("repeat answer does not return the original entry")
	}
	if got := l.Tally(); got[0] != 1 || got[1] != 0 {
		t.Errorf("tally after repeat = %v, want [1 0]", got)
	}

	// Open seals once, the first answer writes once, the repeat writes nothing
	if store.saves != 2 {
		t.Errorf("store saves = %d, want 2", store.saves)
	}
}

func TestSubmitInvalidOption(t *testing.T) {
	l, store := openFresh(t)
	seal := l.Seal()

	for _, option := range []int{-1, 2, 100} {
		_, err := l.SubmitAnswer("alice", option, "")
		if !errors.Is(err, ErrInvalidOption) {
			t.Errorf("SubmitAnswer(%d) error = %v, want ErrInvalidOption", option, err)
		}
	}

	if l.Len() != 0 || l.Seal() != seal || store.saves != 1 {
		t.Error("invalid option mutated the ledger")
	}
}

func TestSubmitIdempotence(t *testing.T) {
	l, _ := openFresh(t)

	identities := []string{"alice", "bob", "carol", "dave"}
	for ix, id := range identities {
		if _, err := l.SubmitAnswer(id, ix%2, ""); err != nil {
			t.Fatalf("SubmitAnswer(%s) error = %v", id, err)
		}
	}
	before := l.Tally()

	for _, id := range identities {
		for option := 0; option < 2; option++ {
			a, err := l.SubmitAnswer(id, option, "")
			if err != nil {
				t.Fatalf("SubmitAnswer(%s) error = %v", id, err)
			}
			if !a.IsPrior {
				t.Errorf("SubmitAnswer(%s, %d) not marked prior", id, option)
			}
			if a.AK != l.AK(id) {
				t.Errorf("SubmitAnswer(%s) AK changed", id)
			}
		}
	}

	after := l.Tally()
	if before[0] != after[0] || before[1] != after[1] {
		t.Errorf("tally changed from %v to %v", before, after)
	}
}

func TestProtectedAnswers(t *testing.T) {
	l, store := openFresh(t)

	a, err := l.SubmitAnswer("alice", 1, "1234")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if a.PO == "" || a.Option != "No" {
		t.Fatalf("protected answer = %+v", a)
	}
	if a.PO != auth.DerivePO(a.AK, "1234", "No") {
		t.Error("PO does not match DerivePO")
	}

	// The file must not reveal the option index
	line := l.Entries()[0].String()
	if !strings.HasSuffix(line, ":"+a.PO) {
		t.Errorf("log line %q does not carry the PO", line)
	}
	if !strings.Contains(string(store.data), a.PO) {
		t.Error("persisted ledger does not contain the PO")
	}

	tests := []struct {
		name         string
		code         string
		wantResolved bool
	}{
		{"correct code", "1234", true},
		{"wrong code", "9999", false},
		{"no code", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.LookupAnswer("alice", tt.code)
			if !ok {
				t.Fatal("LookupAnswer() did not find the answer")
			}
			if got.Resolved != tt.wantResolved {
				t.Errorf("Resolved = %v, want %v", got.Resolved, tt.wantResolved)
			}
			if tt.wantResolved && got.Option != "No" {
				t.Errorf("Option = %q, want No", got.Option)
			}
			if !tt.wantResolved && (got.Option != "" || got.OptionIndex != -1) {
				t.Errorf("unresolved answer leaks option: %+v", got)
			}
		})
	}

	// Resubmitting with the code resolves to the original choice
	again, err := l.SubmitAnswer("alice", 0, "1234")
	if err != nil {
		t.Fatal(err)
	}
	if !again.IsPrior || again.Option != "No" {
		t.Errorf("repeat protected answer = %+v, want prior No", again)
	}
}

func TestLookupMissing(t *testing.T) {
	l, _ := openFresh(t)
	if _, ok := l.LookupAnswer("nobody", ""); ok {
		t.Error("LookupAnswer() found an answer in an empty log")
	}
	if _, ok := l.LookupAK(strings.Repeat("A", digest.TokenLen), ""); ok {
		t.Error("LookupAK() found an unknown key")
	}
}

func TestLastAnswerTimestamp(t *testing.T) {
	l, _ := openFresh(t)
	if ts := l.LastAnswerTimestamp(); ts != "" {
		t.Errorf("LastAnswerTimestamp() = %q on empty log", ts)
	}

	l.SubmitAnswer("alice", 0, "")
	b, _ := l.SubmitAnswer("bob", 1, "")
	if ts := l.LastAnswerTimestamp(); ts != b.Timestamp {
		t.Errorf("LastAnswerTimestamp() = %q, want %q", ts, b.Timestamp)
	}
	if len(b.Timestamp) != digest.TimestampLen {
		t.Errorf("timestamp width = %d, want %d", len(b.Timestamp), digest.TimestampLen)
	}
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	l, store := openFresh(t)
	if _, err := l.SubmitAnswer("alice", 0, ""); err != nil {
		t.Fatal(err)
	}
	seal := l.Seal()
	onDisk := string(store.data)

	store.fail = errors.New("disk full")
	_, err := l.SubmitAnswer("bob", 1, "")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("SubmitAnswer() error = %v, want ErrPersistence", err)
	}

	if l.Len() != 1 || l.Tally()[1] != 0 || l.Seal() != seal {
		t.Error("failed submission left in-memory changes behind")
	}
	if _, ok := l.LookupAnswer("bob", ""); ok {
		t.Error("failed submission is still visible")
	}
	if string(l.Serialize()) != onDisk {
		t.Error("in-memory ledger differs from disk after rollback")
	}

	// Once the store recovers the same identity can answer
	store.fail = nil
	a, err := l.SubmitAnswer("bob", 1, "")
	if err != nil || a.IsPrior {
		t.Errorf("retry = %+v, %v", a, err)
	}
}

func TestTallyInvariant(t *testing.T) {
	l, _ := openFresh(t)

	for i := 0; i < 40; i++ {
		// 40 submissions from 13 distinct identities
		id := fmt.Sprintf("voter-%d", i%13)
		code := ""
		if i%3 == 0 {
			code = "pin"
		}
		if _, err := l.SubmitAnswer(id, i%2, code); err != nil {
			t.Fatal(err)
		}
	}

	sum := 0
	for _, n := range l.Tally() {
		sum += n
	}
	keys := make(map[string]bool)
	for _, e := range l.Entries() {
		keys[e.AK] = true
	}
	if sum != len(keys) || sum != 13 {
		t.Errorf("sum(tally) = %d, distinct AKs = %d, want 13", sum, len(keys))
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	l, store := openFresh(t)

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every voter submits twice to race the prior-answer check
			for j := 0; j < 2; j++ {
				if _, err := l.SubmitAnswer(fmt.Sprintf("voter-%d", i), (i+j)%2, ""); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l.Len() != voters {
		t.Errorf("log length = %d, want %d", l.Len(), voters)
	}

	reloaded, err := Parse("boat", store.data)
	if err != nil {
		t.Fatalf("Parse() of persisted ledger error = %v", err)
	}
	if reloaded.Len() != voters || reloaded.Seal() != l.Seal() {
		t.Error("persisted ledger differs from memory")
	}
}

func TestReload(t *testing.T) {
	l, store := openFresh(t)
	l.SubmitAnswer("alice", 0, "")

	// Another copy of the same file gains an answer
	other, err := Open("boat", store, WithClock(stepClock()))
	if err != nil {
		t.Fatal(err)
	}
	other.SubmitAnswer("bob", 1, "")

	if err := l.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if l.Len() != 2 || l.Seal() != other.Seal() {
		t.Error("Reload() did not pick up the file content")
	}

	store.data = []byte(strings.Replace(string(store.data), "Yes", "Yes please", 1))
	if err := l.Reload(); err == nil {
		t.Error("Reload() accepted a tampered file")
	}
}
