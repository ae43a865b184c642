// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity gates submissions behind an external identity provider.

The flow is two calls:

	ref, err := v.InitAuth(ctx, identitySecret, clientIP) // POST <url>/auth
	ok, err := v.CheckAuth(ctx, ref)                      // POST <url>/collect

The provider answers /auth with {"orderRef": ...} and /collect with
{"status": ...}; "complete" means the person was verified. Every call has a
five second timeout.

New returns nil for an empty or "test" URL, which disables the gate.
mocks.MockVerifier is a gomock fake for handler tests.
*/
package identity
