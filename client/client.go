// Package client is a small SDK for the pledge service's public and
// proof-gated surfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/certid"
)

const defaultTimeout = 3 * time.Second

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	userAgent string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		baseURL:   baseURL,
		userAgent: "pledge-client/1.0",
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// ErrNotFound is returned by VerifyCertificate for an unknown ID.
var ErrNotFound = fmt.Errorf("certificate not found")

// VerifyCertificate resolves a certificate by its public ID. Results are
// cached: certificates are immutable, so a hit can be reused freely.
func (c *Client) VerifyCertificate(ctx context.Context, certificateID string) (*pledge.Certificate, error) {
	id := certid.Normalize(certificateID)

	if cached, found := c.cache.Get(id); found {
		cert := cached.(pledge.Certificate)
		return &cert, nil
	}

	var cert pledge.Certificate
	status, err := c.doJSON(ctx, http.MethodGet, "/api/v1/certificates/"+url.PathEscape(id), "", nil, &cert)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	c.cache.Set(id, cert, cache.DefaultExpiration)
	return &cert, nil
}

// RequestOtp asks the service to send a code to the contact.
func (c *Client) RequestOtp(ctx context.Context, contact string) error {
	body := map[string]string{"contactValue": contact}
	status, err := c.doJSON(ctx, http.MethodPost, "/api/v1/otp/request", "", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", status)
	}
	return nil
}

// ConfirmOtp exchanges a received code for a proof token.
func (c *Client) ConfirmOtp(ctx context.Context, contact string, code string) (string, error) {
	body := map[string]string{"contactValue": contact, "code": code}
	var resp struct {
		ProofToken string `json:"proofToken"`
	}
	status, err := c.doJSON(ctx, http.MethodPost, "/api/v1/otp/confirm", "", body, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", status)
	}
	return resp.ProofToken, nil
}

// LookupCertificates lists the certificates issued to a contact. Requires a
// proof token from a fresh ConfirmOtp for the same contact.
func (c *Client) LookupCertificates(ctx context.Context, contact string, proofToken string) ([]pledge.Certificate, error) {
	var certs []pledge.Certificate
	path := "/api/v1/certificates?contact=" + url.QueryEscape(contact)
	status, err := c.doJSON(ctx, http.MethodGet, path, proofToken, nil, &certs)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}
	return certs, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, proofToken string, body any, response any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if proofToken != "" {
		req.Header.Set("Authorization", "Bearer "+proofToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if response != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %v", err)
		}
	}

	return resp.StatusCode, nil
}
