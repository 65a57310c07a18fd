// Package ozoneclient is a stateless HTTP client over the external
// labeler's moderation XRPC surface: queryEvents, emitEvent,
// queryStatuses, and the unauthenticated health check.
package ozoneclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/ozoneevent"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

// callTimeout and healthTimeout are the per-call request timeouts.
const (
	callTimeout   = 10 * time.Second
	healthTimeout = 5 * time.Second
)

// Client is one stateless instance bound to a single tenant's credential. A
// fresh instance is cheap to construct; it holds no per-call state.
type Client struct {
	cred       *credential.TenantCredential
	minter     *tokenminter.Minter
	httpClient *http.Client
}

// New returns a Client for cred, using minter to obtain a fresh bearer token
// on every call.
func New(cred *credential.TenantCredential, minter *tokenminter.Minter) *Client {
	return &Client{
		cred:   cred,
		minter: minter,
		httpClient: &http.Client{
			Transport: http.DefaultTransport,
		},
	}
}

// QueryEvents fetches a page of moderation events.
func (c *Client) QueryEvents(ctx context.Context, params ozoneevent.QueryEventsParams) (*ozoneevent.QueryEventsResponse, error) {
	q := url.Values{}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	for _, t := range params.Types {
		q.Add("types", t)
	}
	if params.Subject != "" {
		q.Set("subject", params.Subject)
	}
	if params.SortDirection != "" {
		q.Set("sortDirection", params.SortDirection)
	}
	if params.CreatedAfter != "" {
		q.Set("createdAfter", params.CreatedAfter)
	}
	if params.CreatedBefore != "" {
		q.Set("createdBefore", params.CreatedBefore)
	}

	var out ozoneevent.QueryEventsResponse
	path := "/xrpc/tools.ozone.moderation.queryEvents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.do(ctx, http.MethodGet, path, callTimeout, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmitEvent submits a moderation event.
func (c *Client) EmitEvent(ctx context.Context, req ozoneevent.EmitEventRequest) (*ozoneevent.EmitEventResponse, error) {
	var out ozoneevent.EmitEventResponse
	if err := c.do(ctx, http.MethodPost, "/xrpc/tools.ozone.moderation.emitEvent", callTimeout, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryStatuses fetches subject review statuses.
func (c *Client) QueryStatuses(ctx context.Context, params ozoneevent.QueryStatusesParams) (*ozoneevent.QueryStatusesResponse, error) {
	q := url.Values{}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Subject != "" {
		q.Set("subject", params.Subject)
	}
	if params.ReviewState != "" {
		q.Set("reviewState", params.ReviewState)
	}

	var out ozoneevent.QueryStatusesResponse
	path := "/xrpc/tools.ozone.moderation.queryStatuses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.do(ctx, http.MethodGet, path, callTimeout, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck probes the external labeler's unauthenticated health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (*ozoneevent.HealthResponse, error) {
	var out ozoneevent.HealthResponse
	if err := c.doUnauthenticated(ctx, "/xrpc/_health", healthTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, body, result any) error {
	token, err := c.minter.Mint(c.cred)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, method, path, timeout, body, result, "Bearer "+token)
}

func (c *Client) doUnauthenticated(ctx context.Context, path string, timeout time.Duration, result any) error {
	return c.doRequest(ctx, http.MethodGet, path, timeout, nil, result, "")
}

func (c *Client) doRequest(ctx context.Context, method, path string, timeout time.Duration, body, result any, auth string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	fullURL := strings.TrimRight(c.cred.ServiceURL.String(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &bridgeerr.ExternalTransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &bridgeerr.ExternalTransportError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &bridgeerr.ExternalHTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &bridgeerr.MalformedResponse{Cause: err}
		}
	}
	return nil
}
