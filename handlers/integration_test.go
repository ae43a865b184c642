// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/models"
	"github.com/danielhkuo/sealed-poll/testutil"
)

// TestFullAnswerWorkflow tests the complete end-to-end workflow:
// 1. List polls
// 2. Voters answer, one with a personal code
// 3. A voter resubmits and gets the original answer
// 4. Voters look up and check their receipts
// 5. Download the ledger and verify it
// 6. Restart against the journal
// 7. Detect a rolled back ledger file
func TestFullAnswerWorkflow(t *testing.T) {
	registry, dir := testutil.SetupTestRegistry(t, map[string]string{"boat": testutil.YesNoPoll})
	journal := testutil.SetupTestJournal(t)

	cfg := testutil.GetTestConfig()
	pollHandler := NewPollHandler(registry, cfg)
	answerHandler := NewAnswerHandler(registry, nil, journal, cfg)

	path := filepath.Join(dir, "boat"+ledger.Ext)
	sealedFresh, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Step 1: List polls
	w := httptest.NewRecorder()
	pollHandler.ListPolls(w, testutil.MakeRequest("GET", "/polls", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var list models.ListPollsResponse
	testutil.AssertJSON(t, w, &list)
	if len(list.Polls) != 1 || list.Polls[0].Name != "boat" {
		t.Fatalf("Step 1 - Unexpected poll list: %+v", list)
	}

	// Step 2: Three members answer
	voters := []models.SubmitAnswerRequest{
		{IdentitySecret: "alice", Option: testutil.IntPtr(0)},
		{IdentitySecret: "bob", Option: testutil.IntPtr(0)},
		{IdentitySecret: "carol", Option: testutil.IntPtr(1), PersonalCode: "2468"},
	}
	receipts := make(map[string]models.AnswerResponse)
	for _, v := range voters {
		w := submit(t, answerHandler, "boat", v)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 2 - Submit for %s failed: %d - %s", v.IdentitySecret, w.Code, w.Body.String())
		}
		var resp models.AnswerResponse
		testutil.AssertJSON(t, w, &resp)
		receipts[v.IdentitySecret] = resp
	}

	// Step 3: bob changes his mind, the log does not
	w = submit(t, answerHandler, "boat", models.SubmitAnswerRequest{IdentitySecret: "bob", Option: testutil.IntPtr(1)})
	testutil.AssertStatus(t, w, http.StatusOK)
	var repeat models.AnswerResponse
	testutil.AssertJSON(t, w, &repeat)
	if repeat.AnsweredAt != receipts["bob"].AnsweredAt || repeat.OptionText != "Yes" {
		t.Errorf("Step 3 - Repeat answer differs from the original: %+v", repeat)
	}

	// Step 4: carol checks her protected answer and her key
	w = lookup(t, answerHandler, "boat", models.LookupRequest{IdentitySecret: "carol", PersonalCode: "2468"})
	testutil.AssertStatus(t, w, http.StatusOK)
	var carol models.AnswerResponse
	testutil.AssertJSON(t, w, &carol)
	if carol.OptionText != "No" || !carol.Protected {
		t.Errorf("Step 4 - Unexpected lookup: %+v", carol)
	}

	req := testutil.MakeRequest("GET", "/polls/boat/answers/"+carol.AnonymousKey, nil, nil)
	req.SetPathValue("name", "boat")
	req.SetPathValue("ak", carol.AnonymousKey)
	w = httptest.NewRecorder()
	answerHandler.GetAnswer(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var byKey models.AnswerResponse
	testutil.AssertJSON(t, w, &byKey)
	if byKey.Option != nil {
		t.Error("Step 4 - Key lookup revealed a protected option")
	}

	// Step 5: Anyone can verify the published ledger
	req = testutil.MakeRequest("GET", "/polls/boat/result", nil, nil)
	req.SetPathValue("name", "boat")
	w = httptest.NewRecorder()
	pollHandler.GetLedger(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	published, err := ledger.Parse("boat", w.Body.Bytes())
	if err != nil {
		t.Fatalf("Step 5 - Published ledger does not verify: %v", err)
	}
	if tally := published.Tally(); tally[0] != 2 || tally[1] != 1 {
		t.Errorf("Step 5 - Expected tally [2 1], got %v", tally)
	}

	// Step 6: A restart accepts the file the journal agrees with
	ctx := context.Background()
	reloaded, err := ledger.LoadDir(ctx, dir, journal)
	if err != nil {
		t.Fatalf("Step 6 - Restart failed: %v", err)
	}
	boat, _ := reloaded.Get("boat")
	if boat.Seal() != published.Seal() {
		t.Error("Step 6 - Restart loaded a different ledger")
	}

	// Step 7: Restoring the old, validly sealed file is caught
	if err := os.WriteFile(path, sealedFresh, 0644); err != nil {
		t.Fatal(err)
	}
	_, err = ledger.LoadDir(ctx, dir, journal)
	if !errors.Is(err, ledger.ErrRolledBack) {
		t.Errorf("Step 7 - Expected ErrRolledBack, got %v", err)
	}
}
