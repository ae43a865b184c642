// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielhkuo/sealed-poll/digest"
)

// Ledger file layout (UTF-8, newline terminated lines):
//
//	<title>
//	<body line>...
//	<blank>
//	<option>...
//	<blank>
//	<tally, ':' separated>
//	<blank>
//	<answer line>...
//	<blank>
//	<seal, hex>
//
// A fresh poll is written by hand and stops after the option block; it has
// no tally, answers or seal yet.

// source is the raw block structure of a ledger file, before validation.
type source struct {
	title   string
	body    []string
	options []string
	tally   string
	answers []string
	seal    string
	fresh   bool
}

type lineReader struct {
	lines []string
	pos   int
}

func (r *lineReader) next() (string, bool) {
	if r.pos >= len(r.lines) {
		return "", false
	}
	line := r.lines[r.pos]
	r.pos++
	return line, true
}

// block reads lines up to and excluding the next blank line.
// terminated is false when EOF was hit first.
func (r *lineReader) block() (lines []string, terminated bool) {
	for {
		line, ok := r.next()
		if !ok {
			return lines, false
		}
		if line == "" {
			return lines, true
		}
		lines = append(lines, line)
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptLedger, fmt.Sprintf(format, args...))
}

// split breaks data into its blocks without interpreting field contents.
func split(data []byte) (source, error) {
	var src source

	text := string(data)
	if text == "" {
		return src, corrupt("empty source")
	}
	sealed := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	r := &lineReader{lines: strings.Split(text, "\n")}

	src.title, _ = r.next()
	if src.title == "" {
		return src, corrupt("missing title")
	}

	var ok bool
	if src.body, ok = r.block(); !ok || len(src.body) == 0 {
		return src, corrupt("missing body")
	}

	src.options, ok = r.block()
	if len(src.options) == 0 {
		return src, corrupt("missing options")
	}
	if _, more := r.next(); !ok || !more {
		src.fresh = true
		return src, nil
	}
	r.pos--

	src.tally, _ = r.next()
	if blank, _ := r.next(); blank != "" {
		return src, corrupt("tally must be followed by a blank line")
	}

	if src.answers, ok = r.block(); !ok {
		return src, corrupt("answer log is not terminated")
	}

	if src.seal, ok = r.next(); !ok || !sealed {
		return src, corrupt("missing seal")
	}
	if _, extra := r.next(); extra {
		return src, corrupt("trailing content after seal")
	}
	return src, nil
}

func parseTally(line string, numOptions int) ([]int, error) {
	fields := strings.Split(line, ":")
	if len(fields) != numOptions {
		return nil, corrupt("tally has %d counts for %d options", len(fields), numOptions)
	}
	tally := make([]int, numOptions)
	for ix, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || strconv.Itoa(n) != f {
			return nil, corrupt("bad tally count %q", f)
		}
		tally[ix] = n
	}
	return tally, nil
}

func formatTally(tally []int) string {
	fields := make([]string, len(tally))
	for ix, n := range tally {
		fields[ix] = strconv.Itoa(n)
	}
	return strings.Join(fields, ":")
}

// computeSeal digests the ledger content. Every field is length-framed and
// the option and answer counts are included, so fields cannot be moved
// across block boundaries without changing the seal.
func computeSeal(title string, body []string, options []string, tally string, answers []string) string {
	chunks := make([][]byte, 0, 6+len(body)+len(options)+len(answers))
	chunks = append(chunks, digest.Frame(title))
	chunks = append(chunks, digest.PutUint(uint64(len(body)), 4))
	for _, line := range body {
		chunks = append(chunks, digest.Frame(line))
	}
	chunks = append(chunks, digest.PutUint(uint64(len(options)), 4))
	for _, option := range options {
		chunks = append(chunks, digest.Frame(option))
	}
	chunks = append(chunks, digest.Frame(tally))
	chunks = append(chunks, digest.PutUint(uint64(len(answers)), 4))
	for _, line := range answers {
		chunks = append(chunks, digest.Frame(line))
	}
	return digest.Hex(digest.Sum(chunks...))
}

// Parse decodes and verifies a ledger source. The returned ledger has no
// store; use Open for a ledger that persists its submissions.
func Parse(name string, data []byte, opts ...Option) (*Ledger, error) {
	src, err := split(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l := newLedger(name, src.title, src.body, src.options, opts...)
	if src.fresh {
		l.seal = l.sealLocked()
		l.fresh = true
		return l, nil
	}

	if !digest.IsHex(src.seal) {
		return nil, fmt.Errorf("%s: %w", name, corrupt("malformed seal %q", src.seal))
	}
	actual := computeSeal(src.title, src.body, src.options, src.tally, src.answers)
	if !digest.Equal(actual, src.seal) {
		return nil, fmt.Errorf("%s: %w", name, ErrSealMismatch)
	}

	if l.tally, err = parseTally(src.tally, len(src.options)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for _, line := range src.answers {
		e, err := parseEntry(line, len(src.options))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, corrupt("%v", err))
		}
		if _, dup := l.index[e.AK]; dup {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrDuplicateVoterKey, e.AK)
		}
		l.index[e.AK] = len(l.entries)
		l.entries = append(l.entries, e)
	}

	if err := checkTally(l.tally, l.entries); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l.seal = src.seal
	return l, nil
}

// checkTally verifies sum(tally) equals the number of entries, and that no
// option has fewer counts than plain entries naming it.
func checkTally(tally []int, entries []Entry) error {
	plain := make([]int, len(tally))
	sum := 0
	for _, n := range tally {
		sum += n
	}
	if sum != len(entries) {
		return corrupt("tally total %d does not match %d answers", sum, len(entries))
	}
	for _, e := range entries {
		if !e.Protected() {
			plain[e.Option]++
		}
	}
	for ix := range tally {
		if tally[ix] < plain[ix] {
			return corrupt("tally for option %d is %d, log has %d", ix, tally[ix], plain[ix])
		}
	}
	return nil
}

func (l *Ledger) serializeLocked() []byte {
	var sb strings.Builder

	sb.WriteString(l.title)
	sb.WriteByte('\n')
	for _, line := range l.body {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	for _, option := range l.options {
		sb.WriteString(option)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	sb.WriteString(formatTally(l.tally))
	sb.WriteString("\n\n")

	for _, e := range l.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	sb.WriteString(l.seal)
	sb.WriteByte('\n')

	return []byte(sb.String())
}

func (l *Ledger) sealLocked() string {
	answers := make([]string, len(l.entries))
	for ix, e := range l.entries {
		answers[ix] = e.String()
	}
	return computeSeal(l.title, l.body, l.options, formatTally(l.tally), answers)
}
