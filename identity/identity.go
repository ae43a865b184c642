// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

//go:generate mockgen -destination=mocks/mock_verifier.go -package=mocks github.com/danielhkuo/sealed-poll/identity Verifier

// Timeout bounds every call to the identity provider.
const Timeout = 5 * time.Second

const userAgent = "sealed-poll"

var (
	// ErrUnavailable is returned when the provider cannot be reached or
	// answers with a non-200 status.
	ErrUnavailable = errors.New("identity provider unavailable")

	// ErrBadResponse is returned when the provider reply lacks the expected field.
	ErrBadResponse = errors.New("identity provider returned an unexpected response")
)

// Verifier confirms that a person controls an identity secret before their
// answer is accepted. It is an external collaborator; the ledger never sees it.
type Verifier interface {
	// InitAuth starts a verification for identitySecret and returns an order
	// reference to poll with CheckAuth.
	InitAuth(ctx context.Context, identitySecret, clientAddr string) (string, error)

	// CheckAuth reports whether the verification behind orderRef completed.
	CheckAuth(ctx context.Context, orderRef string) (bool, error)
}

// New returns a Verifier for the provider at url, or nil when verification
// is disabled (url empty or "test").
func New(url string, tlsConfig *tls.Config) Verifier {
	if url == "" || url == "test" {
		return nil
	}
	return NewHTTPVerifier(url, tlsConfig)
}

// HTTPVerifier talks JSON to an identity provider exposing /auth and /collect.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier for baseURL. tlsConfig may be nil.
func NewHTTPVerifier(baseURL string, tlsConfig *tls.Config) *HTTPVerifier {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}
	return &HTTPVerifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: Timeout, Transport: transport},
	}
}

type authRequest struct {
	PersonalNumber string `json:"personalNumber"`
	EndUserIP      string `json:"endUserIp"`
}

type authResponse struct {
	OrderRef string `json:"orderRef"`
}

type collectRequest struct {
	OrderRef string `json:"orderRef"`
}

type collectResponse struct {
	Status string `json:"status"`
}

// InitAuth posts to /auth and returns the provider's orderRef.
func (v *HTTPVerifier) InitAuth(ctx context.Context, identitySecret, clientAddr string) (string, error) {
	var resp authResponse
	if err := v.call(ctx, "/auth", authRequest{PersonalNumber: identitySecret, EndUserIP: clientAddr}, &resp); err != nil {
		return "", err
	}
	if resp.OrderRef == "" {
		return "", fmt.Errorf("%w: missing orderRef", ErrBadResponse)
	}
	return resp.OrderRef, nil
}

// CheckAuth posts to /collect; only status "complete" counts as verified.
func (v *HTTPVerifier) CheckAuth(ctx context.Context, orderRef string) (bool, error) {
	var resp collectResponse
	if err := v.call(ctx, "/collect", collectRequest{OrderRef: orderRef}, &resp); err != nil {
		return false, err
	}
	return resp.Status == "complete", nil
}

func (v *HTTPVerifier) call(ctx context.Context, op string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+op, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadResponse, op, err)
	}
	return nil
}
