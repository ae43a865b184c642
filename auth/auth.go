// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"

	"github.com/danielhkuo/sealed-poll/digest"
)

var ErrInvalidKey = errors.New("invalid key format")

// DeriveAK creates the anonymous key for an identity on a poll.
// This is deterministic: the same body and secret always give the same key,
// so a repeat submission is detectable without storing the secret.
func DeriveAK(pollBody, identitySecret string) string {
	return digest.Token(digest.Sum(digest.Frame(pollBody), digest.Frame(identitySecret)))
}

// DerivePO creates the protected option token binding an AK to an option
// under a personal code.
func DerivePO(ak, personalCode, optionText string) string {
	return digest.Token(digest.Sum(digest.Frame(ak), digest.Frame(personalCode), digest.Frame(optionText)))
}

// RevealPO finds which option produced po by recomputing DerivePO for every
// option. Returns -1, false when no option matches (wrong code or wrong key).
func RevealPO(po, ak, personalCode string, options []string) (int, bool) {
	for ix, option := range options {
		if digest.Equal(DerivePO(ak, personalCode, option), po) {
			return ix, true
		}
	}
	return -1, false
}

// ValidateKey checks that a caller-supplied AK or PO has the token shape.
func ValidateKey(key string) error {
	if !digest.IsToken(key) {
		return ErrInvalidKey
	}
	return nil
}
