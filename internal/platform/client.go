// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package platform wraps the remote career-tooling platform REST API. It is
// a thin, single-shot client: no retries, no local caching. The license
// directory layered on top owns freshness.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talentgate/talentgate/internal/models"
)

var (
	ErrTrialAlreadyUsed = errors.New("trial already used for this module")
	ErrAlreadyLicensed  = errors.New("module already licensed")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrModuleNotFound   = errors.New("module not found")
	ErrUnauthorized     = errors.New("platform rejected credentials")
)

const (
	marketplacePath = "/api/modules/marketplace/"
	myModulesPath   = "/api/modules/my-modules/"

	requestTimeout    = 30 * time.Second
	maxErrorBodyBytes = 64 * 1024
)

// APIError carries the platform's error payload verbatim so handlers can
// surface the server message to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("platform api error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

type OptFunc func(*Client)

func WithToken(token string) OptFunc {
	return func(c *Client) {
		c.token = token
	}
}

func WithUserAgent(userAgent string) OptFunc {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithHTTPClient(httpClient *http.Client) OptFunc {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...OptFunc) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "talentgate",
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// MarketplaceFilter narrows the marketplace listing.
type MarketplaceFilter struct {
	Category   string
	Search     string
	IsFeatured *bool
}

func (f MarketplaceFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.IsFeatured != nil {
		q.Set("is_featured", fmt.Sprintf("%t", *f.IsFeatured))
	}
	return q
}

// PurchaseRequest is the wire shape for both trials and paid purchases. The
// platform decides whether a paid request is an upgrade or a new purchase.
type PurchaseRequest struct {
	LicenseType     string `json:"license_type"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// PurchaseResult is the platform's confirmation payload.
type PurchaseResult struct {
	Message  string         `json:"message"`
	License  models.License `json:"license"`
	ChargeID string         `json:"charge_id,omitempty"`
}

// listEnvelope unwraps DRF-style paginated responses. The platform returns
// either a bare array or {"results": [...]}.
type listEnvelope[T any] struct {
	Results []T
}

func (e *listEnvelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &e.Results)
	}

	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return err
	}
	e.Results = wrapped.Results
	return nil
}

// Marketplace fetches the module catalog. The has_access flag on each module
// is computed server-side and is authoritative for the marketplace page.
func (c *Client) Marketplace(ctx context.Context, filter MarketplaceFilter) ([]models.Module, error) {
	path := marketplacePath
	if q := filter.query().Encode(); q != "" {
		path += "?" + q
	}

	var envelope listEnvelope[models.Module]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// Module fetches a single catalog entry by ID.
func (c *Client) Module(ctx context.Context, moduleID string) (*models.Module, error) {
	var module models.Module
	if err := c.doRequest(ctx, http.MethodGet, marketplacePath+url.PathEscape(moduleID)+"/", nil, &module); err != nil {
		return nil, err
	}
	return &module, nil
}

// MyModules fetches the tenant's licenses, the wire source of the license
// directory. The platform returns at most one relevant license per module.
func (c *Client) MyModules(ctx context.Context) ([]models.License, error) {
	var envelope listEnvelope[models.License]
	if err := c.doRequest(ctx, http.MethodGet, myModulesPath, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// Purchase starts a trial or buys a plan for the given module. Single-shot:
// a failure means no license was created and the caller must not assume
// access until a directory refetch confirms it.
func (c *Client) Purchase(ctx context.Context, moduleID string, req PurchaseRequest) (*PurchaseResult, error) {
	var result PurchaseResult
	path := marketplacePath + url.PathEscape(moduleID) + "/purchase/"
	if err := c.doRequest(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var reader io.Reader
	if requestBody != nil {
		payload, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}

	if responseBody == nil {
		return nil
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(responseBody); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	message := strings.TrimSpace(string(body))

	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Detail != "":
			message = payload.Detail
		case payload.Message != "":
			message = payload.Message
		}
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}

	lower := strings.ToLower(message)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return wrapError(ErrUnauthorized, apiErr)
	case resp.StatusCode == http.StatusNotFound:
		return wrapError(ErrModuleNotFound, apiErr)
	case strings.Contains(lower, "already have an active paid license"):
		return wrapError(ErrAlreadyLicensed, apiErr)
	case strings.Contains(lower, "already have an active license"):
		return wrapError(ErrTrialAlreadyUsed, apiErr)
	case strings.Contains(lower, "payment failed") || strings.Contains(lower, "payment declined"):
		return wrapError(ErrPaymentFailed, apiErr)
	}

	return apiErr
}

// wrapError keeps both the sentinel and the APIError in the chain so callers
// can classify with errors.Is and still read the platform message.
func wrapError(base error, apiErr *APIError) error {
	if apiErr.Message == "" {
		return base
	}
	return fmt.Errorf("%w: %w", base, apiErr)
}

// MaskToken shortens a bearer token for log output.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "***"
}
