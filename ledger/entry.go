// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"strconv"

	"github.com/danielhkuo/sealed-poll/digest"
)

// Entry is one line of the answer log.
//
// Line format, with widths taken from the digest package:
//
//	[TimestampLen] timestamp
//	[1]            ' '
//	[TokenLen]     anonymous key
//	[1]            ':'
//	[n]            option index (decimal) or [TokenLen] protected option
type Entry struct {
	Timestamp string
	AK        string
	Option    int    // -1 when protected
	PO        string // empty in plain mode
}

// Protected reports whether the entry hides its option behind a PO.
func (e Entry) Protected() bool { return e.PO != "" }

func (e Entry) String() string {
	if e.Protected() {
		return e.Timestamp + " " + e.AK + ":" + e.PO
	}
	return e.Timestamp + " " + e.AK + ":" + strconv.Itoa(e.Option)
}

var (
	akOffset     = digest.TimestampLen + 1
	choiceOffset = akOffset + digest.TokenLen + 1
	maxEntryLen  = choiceOffset + digest.TokenLen
)

// parseEntry decodes an answer line against the fixed field widths.
func parseEntry(line string, numOptions int) (Entry, error) {
	if len(line) <= choiceOffset || len(line) > maxEntryLen {
		return Entry{}, fmt.Errorf("answer line %q: bad length %d", line, len(line))
	}
	if line[digest.TimestampLen] != ' ' || line[choiceOffset-1] != ':' {
		return Entry{}, fmt.Errorf("answer line %q: bad separators", line)
	}

	e := Entry{
		Timestamp: line[:digest.TimestampLen],
		AK:        line[akOffset : choiceOffset-1],
		Option:    -1,
	}
	if _, err := digest.ParseTimestamp(e.Timestamp); err != nil {
		return Entry{}, fmt.Errorf("answer line %q: %w", line, err)
	}
	if !digest.IsToken(e.AK) {
		return Entry{}, fmt.Errorf("answer line %q: bad anonymous key", line)
	}

	choice := line[choiceOffset:]
	if len(choice) == digest.TokenLen {
		if !digest.IsToken(choice) {
			return Entry{}, fmt.Errorf("answer line %q: bad protected option", line)
		}
		e.PO = choice
		return e, nil
	}

	ix, err := strconv.Atoi(choice)
	if err != nil || strconv.Itoa(ix) != choice {
		return Entry{}, fmt.Errorf("answer line %q: bad option index", line)
	}
	if ix < 0 || ix >= numOptions {
		return Entry{}, fmt.Errorf("answer line %q: option %d out of range", line, ix)
	}
	e.Option = ix
	return e, nil
}
