// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth derives the pseudonymous keys that stand in for voters.

# Anonymous Keys

An anonymous key (AK) is a one-way digest of the poll body and the voter's
identity secret:

	ak := auth.DeriveAK(body, identitySecret)

The key is URL-safe base64 without padding and always digest.TokenLen
characters long. Because the poll body is part of the input, the same
identity gets unrelated keys on different polls, and editing a poll's body
invalidates every key recorded for it.

# Protected Options

When a voter supplies a personal code, the ledger records a protected option
(PO) instead of the option index:

	po := auth.DerivePO(ak, personalCode, optionText)

Only someone holding the personal code can map the PO back to an option:

	ix, ok := auth.RevealPO(po, ak, personalCode, options)

RevealPO tries every option, which is fine for the handful of choices a poll
has.

# Limits

No salt is added beyond the poll content. Results are reproducible and
auditable, but a low-entropy identity secret can be guessed offline.
Deployments that need stronger privacy must use high-entropy secrets.
*/
package auth
