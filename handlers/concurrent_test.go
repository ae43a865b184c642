// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/models"
	"github.com/danielhkuo/sealed-poll/testutil"
)

// TestConcurrentAnswerSubmissions verifies that simultaneous submissions from
// different voters all land in the log and the file stays verifiable
func TestConcurrentAnswerSubmissions(t *testing.T) {
	registry, dir := testutil.SetupTestRegistry(t, map[string]string{"lunch": testutil.LunchPoll})
	journal := testutil.SetupTestJournal(t)
	handler := NewAnswerHandler(registry, nil, journal, testutil.GetTestConfig())

	numVoters := 20

	var created, repeated atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		// Each voter submits twice with different options
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(voterIdx, attempt int) {
				defer wg.Done()

				req := testutil.MakeRequest("POST", "/polls/lunch/answers", models.SubmitAnswerRequest{
					IdentitySecret: fmt.Sprintf("voter-%d", voterIdx),
					Option:         testutil.IntPtr((voterIdx + attempt) % 3),
				}, nil)
				req.SetPathValue("name", "lunch")
				w := httptest.NewRecorder()

				handler.Submit(w, req)

				switch w.Code {
				case http.StatusCreated:
					created.Add(1)
				case http.StatusOK:
					repeated.Add(1)
				default:
					t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
				}
			}(i, j)
		}
	}

	wg.Wait()

	if int(created.Load()) != numVoters {
		t.Errorf("Expected %d new answers, got %d", numVoters, created.Load())
	}
	if int(repeated.Load()) != numVoters {
		t.Errorf("Expected %d repeat answers, got %d", numVoters, repeated.Load())
	}

	// The persisted file verifies and holds each voter once
	data, err := os.ReadFile(filepath.Join(dir, "lunch"+ledger.Ext))
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ledger.Parse("lunch", data)
	if err != nil {
		t.Fatalf("Persisted ledger does not verify: %v", err)
	}
	if parsed.Len() != numVoters {
		t.Errorf("Expected %d entries, got %d", numVoters, parsed.Len())
	}

	keys, err := journal.RecordedKeys(context.Background(), "lunch")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != numVoters {
		t.Errorf("Expected %d journaled keys, got %d", numVoters, len(keys))
	}
}

// TestConcurrentReadsDuringWrites verifies that poll views and ledger
// downloads stay consistent while answers are being recorded
func TestConcurrentReadsDuringWrites(t *testing.T) {
	registry, _ := testutil.SetupTestRegistry(t, map[string]string{"boat": testutil.YesNoPoll})
	answers := NewAnswerHandler(registry, nil, nil, testutil.GetTestConfig())
	polls := NewPollHandler(registry, testutil.GetTestConfig())

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/polls/boat/answers", models.SubmitAnswerRequest{
				IdentitySecret: fmt.Sprintf("member-%d", i),
				Option:         testutil.IntPtr(i % 2),
			}, nil)
			req.SetPathValue("name", "boat")
			answers.Submit(httptest.NewRecorder(), req)
		}(i)
		go func() {
			defer wg.Done()
			req := testutil.MakeRequest("GET", "/polls/boat/result", nil, nil)
			req.SetPathValue("name", "boat")
			w := httptest.NewRecorder()
			polls.GetLedger(w, req)

			// Every snapshot is a complete, sealed ledger
			if _, err := ledger.Parse("boat", w.Body.Bytes()); err != nil {
				t.Errorf("Snapshot does not verify: %v", err)
			}
		}()
	}
	wg.Wait()

	boat, _ := registry.Get("boat")
	if boat.Len() != 30 {
		t.Errorf("Expected 30 answers, got %d", boat.Len())
	}
}
