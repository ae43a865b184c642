// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request and response types for the API.

# Request Types

Types for parsing incoming JSON:

  - AuthRequest: identity_secret, option
  - SubmitAnswerRequest: identity_secret, option, personal_code, order_ref
  - LookupRequest: identity_secret, personal_code, order_ref

Option is a pointer so a missing option can be told apart from option 0.

# Response Types

Types for JSON responses:

  - AuthResponse: order_ref, verification_required, option, option_text
  - AnswerResponse: anonymous_key, answered_at, option, already_answered, seal
  - ListPollsResponse: polls
  - PollView: title, body, per-option counts and percentages, seal
  - ErrorResponse: error, message

# Privacy

No response carries an identity secret or personal code. The anonymous key
is safe to return: it cannot be linked back to the identity without the
secret.
*/
package models
