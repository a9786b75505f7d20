// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package edsm is a client for the Elite Dangerous Star Map API: the
// journal upload endpoint and the system lookup endpoint.
package edsm

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
)

// DefaultBaseURL is the public EDSM endpoint.
const DefaultBaseURL = "https://www.edsm.net"

// SoftwareName identifies uploads from edsst.
const SoftwareName = "EDSST"

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each request when HTTPClient is nil. Default 30s.
	Timeout time.Duration

	// HTTPClient overrides the transport.
	HTTPClient *http.Client

	// CommanderName and APIKey authenticate journal uploads.
	CommanderName string
	APIKey        string

	// SoftwareVersion is reported as fromSoftwareVersion.
	SoftwareVersion string
}

// Client talks to EDSM. Safe for concurrent use.
type Client struct {
	baseURL         string
	http            *http.Client
	commanderName   string
	apiKey          string
	softwareVersion string
}

// New returns a Client for options.
func New(options Options) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.HTTPClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		options.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:         strings.TrimRight(options.BaseURL, "/"),
		http:            options.HTTPClient,
		commanderName:   options.CommanderName,
		apiKey:          options.APIKey,
		softwareVersion: options.SoftwareVersion,
	}
}

// CanUpload reports whether credentials for journal uploads are set.
func (c *Client) CanUpload() bool {
	return c.commanderName != "" && c.apiKey != ""
}

// Discard returns the event types EDSM does not want uploaded.
func (c *Client) Discard(ctx context.Context) ([]string, error) {
	var events []string
	if err := c.get(ctx, "/api-journal-v1/discard", nil, &events); err != nil {
		return nil, fmt.Errorf("fetching discard list: %w", err)
	}
	return events, nil
}

// System is one entry of a systems lookup.
type System struct {
	Name string `json:"name"`
}

// Systems returns the named systems EDSM already knows. Unknown names
// are absent from the result.
func (c *Client) Systems(ctx context.Context, names []string) ([]System, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for _, name := range names {
		query.Add("systemName[]", name)
	}

	// EDSM answers {} instead of [] when nothing matches.
	var raw json.RawMessage
	if err := c.get(ctx, "/api-v1/systems", query, &raw); err != nil {
		return nil, fmt.Errorf("looking up systems: %w", err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var systems []System
	if err := json.Unmarshal(raw, &systems); err != nil {
		return nil, fmt.Errorf("decoding systems: %w", err)
	}
	return systems, nil
}

// JournalBatch is a set of raw journal lines to upload.
type JournalBatch struct {
	GameVersion string
	GameBuild   string
	Events      []json.RawMessage
}

type journalRequest struct {
	CommanderName       string            `json:"commanderName"`
	APIKey              string            `json:"apiKey"`
	FromSoftware        string            `json:"fromSoftware"`
	FromSoftwareVersion string            `json:"fromSoftwareVersion"`
	FromGameVersion     string            `json:"fromGameVersion"`
	FromGameBuild       string            `json:"fromGameBuild"`
	Message             []json.RawMessage `json:"message"`
}

// PostJournal uploads a batch. A non-nil response may still report
// rejected events; see JournalResponse.Check.
func (c *Client) PostJournal(ctx context.Context, batch JournalBatch) (*JournalResponse, error) {
	body, err := json.Marshal(journalRequest{
		CommanderName:       c.commanderName,
		APIKey:              c.apiKey,
		FromSoftware:        SoftwareName,
		FromSoftwareVersion: c.softwareVersion,
		FromGameVersion:     batch.GameVersion,
		FromGameBuild:       batch.GameBuild,
		Message:             batch.Events,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding journal batch: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api-journal-v1", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	var response JournalResponse
	if err := c.do(request, &response); err != nil {
		return nil, fmt.Errorf("posting journal batch: %w", err)
	}
	return &response, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(request, into)
}

func (c *Client) do(request *http.Request, into any) error {
	request.Header.Set("Accept", "application/json")
	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return &StatusError{StatusCode: response.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(response.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("edsm returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("edsm returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
