// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger owns the state of a poll: question, options, tally, answer log
and integrity seal.

# File Layout

A ledger lives in one UTF-8 text file:

	Boat
	Should the club buy a new boat?

	Yes
	No

	1:0

	2025-05-01T10:00:00.000+02:00 <AK>:0

	<seal>

Answer lines are "<timestamp> <AK>:<option index or PO>". Timestamps, AKs and
POs are fixed width, so the tail of a file can be read without parsing the
whole log (ReadLastTimestamp).

A new poll is authored by hand as just the title, body and options. Open
seals it on first load.

# Integrity

Parse recomputes the seal over title, body, options, tally and answer lines
and rejects any difference (ErrSealMismatch). It also rejects structural
problems (ErrCorruptLedger), repeated anonymous keys (ErrDuplicateVoterKey),
and a tally that disagrees with the log. None of these are repaired.

# Submitting

	l, err := ledger.Open("boat", ledger.NewFileStore("polls/boat.txt"))
	answer, err := l.SubmitAnswer(identitySecret, 0, "")

SubmitAnswer is idempotent per identity: a second call returns the first
answer with IsPrior set. New answers are persisted before the call returns;
if the write fails the in-memory change is rolled back and ErrPersistence is
returned.

# Registry

LoadDir opens every ledger in a directory. An optional Witness (the seal
journal) lists answers accepted earlier, so a file that was rolled back to an
older, validly sealed version is caught at startup (ErrRolledBack).
*/
package ledger
