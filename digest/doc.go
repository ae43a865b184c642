// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package digest provides the hashing and fixed-width encodings used by the ledger.

All functions are pure. Field widths (TokenLen, SealLen, TimestampLen) are
computed from the hash size and encodings at package init, so the ledger
codec never hard-codes them.

	sum := digest.Sum(digest.Frame(body), digest.Frame(secret))
	ak := digest.Token(sum)      // TokenLen characters
	seal := digest.Hex(sum)      // SealLen characters
	ts := digest.FormatTimestamp(time.Now())
*/
package digest
