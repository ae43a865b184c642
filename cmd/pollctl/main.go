// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/sealed-poll/digest"
	"github.com/danielhkuo/sealed-poll/ledger"
)

const usage = "usage: pollctl <poll file> [<identity> [<option> [<personal code>]]]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 4 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	option := -1
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(stderr, "invalid option %q\n%s\n", args[2], usage)
			return 2
		}
		option = n
	}

	path := args[0]
	name := strings.TrimSuffix(filepath.Base(path), ledger.Ext)

	l, err := ledger.Open(name, ledger.NewFileStore(path))
	if err != nil {
		slog.Error("failed to open poll", "path", path, "error", err)
		return 1
	}

	printPoll(stdout, l, path)

	switch len(args) {
	case 1:
		return 0
	case 2:
		answer, found := l.LookupAnswer(args[1], "")
		if !found {
			fmt.Fprintln(stdout, "\nANSWER: not found")
			return 0
		}
		fmt.Fprintln(stdout, "\nANSWER:")
		printAnswer(stdout, answer)
		return 0
	}

	code := ""
	if len(args) == 4 {
		code = args[3]
	}

	answer, err := l.SubmitAnswer(args[1], option, code)
	if errors.Is(err, ledger.ErrInvalidOption) {
		fmt.Fprintf(stderr, "option must be between 0 and %d\n", len(l.Options())-1)
		return 2
	}
	if err != nil {
		slog.Error("failed to record answer", "path", path, "error", err)
		return 1
	}

	if answer.IsPrior {
		fmt.Fprintln(stdout, "\nALREADY ANSWERED:")
	} else {
		fmt.Fprintln(stdout, "\nYOUR ANSWER:")
	}
	printAnswer(stdout, answer)
	return 0
}

func printPoll(w io.Writer, l *ledger.Ledger, path string) {
	summary := l.Summary()

	fmt.Fprintln(w, l.Title())
	fmt.Fprintln(w, l.Body())
	fmt.Fprintln(w)
	for ix, option := range summary.Options {
		fmt.Fprintf(w, "%d. %-20s %8s  %5.1f%%\n", ix, option, humanize.Comma(int64(summary.Counts[ix])), summary.Percent(ix))
	}
	fmt.Fprintf(w, "\n%s answers\n", humanize.Comma(int64(summary.Total)))

	ts, err := ledger.ReadLastTimestamp(path)
	if err != nil {
		slog.Warn("failed to read last answer time", "path", path, "error", err)
		return
	}
	if ts == "" {
		return
	}
	if t, err := digest.ParseTimestamp(ts); err == nil {
		fmt.Fprintf(w, "Last answer: %s (%s)\n", ts, humanize.Time(t))
	}
}

func printAnswer(w io.Writer, a ledger.Answer) {
	if a.Resolved {
		fmt.Fprintf(w, "Option: %d. %s\n", a.OptionIndex, a.Option)
	} else {
		fmt.Fprintln(w, "Option: protected")
	}
	fmt.Fprintf(w, "Reference: %s\n", a.AK)
	fmt.Fprintf(w, "Time: %s\n", a.Timestamp)
}
