// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielhkuo/sealed-poll/digest"
)

// tailWindow covers "<last answer>\n\n<seal>\n" plus the newline that ends
// the line before the last answer.
var tailWindow = int64(maxEntryLen + digest.SealLen + 4)

// ReadLastTimestamp returns the timestamp of the last answer in a sealed
// ledger file by reading only its tail. It returns "" for an empty log.
// The seal is not verified; use Open for that.
func ReadLastTimestamp(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat ledger file: %w", err)
	}

	offset := info.Size() - tailWindow
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return "", fmt.Errorf("read ledger tail: %w", err)
	}

	text, ok := strings.CutSuffix(string(buf), "\n")
	if !ok {
		return "", corrupt("ledger file does not end with a seal")
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 || !digest.IsHex(lines[len(lines)-1]) || lines[len(lines)-2] != "" {
		return "", corrupt("ledger file does not end with a seal")
	}

	last := lines[len(lines)-3]
	if last == "" {
		return "", nil
	}
	if len(last) <= choiceOffset || last[digest.TimestampLen] != ' ' {
		return "", corrupt("malformed last answer line")
	}
	ts := last[:digest.TimestampLen]
	if _, err := digest.ParseTimestamp(ts); err != nil {
		return "", corrupt("malformed last answer line: %v", err)
	}
	return ts, nil
}
