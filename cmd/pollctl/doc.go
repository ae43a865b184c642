// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Pollctl reads and answers a poll ledger file without the server.

Usage:

	pollctl <poll file> [<identity> [<option> [<personal code>]]]

With only a file it prints the question, the tally and the time of the last
answer. With an identity it looks up that identity's answer. With an option
(0-based) it records an answer; a personal code makes it a protected one.

The file is verified first and left untouched if it fails. Do not run pollctl
against a file the server is serving: the server keeps its own copy in memory.

Exit status is 2 for usage errors and 1 when the file fails verification or
cannot be written.
*/
package main
