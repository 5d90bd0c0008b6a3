// Package pokeapi is a read-only client for the public Pokémon REST API.
package pokeapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/logging"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Endpoint labels used for metrics and logs
const (
	EndpointList   = "list"
	EndpointDetail = "detail"
)

// Lister fetches the bounded listing of Pokémon summaries
type Lister interface {
	ListSummaries(ctx context.Context, limit int) ([]pokemon.Summary, error)
}

// DetailFetcher fetches the full record of one Pokémon
type DetailFetcher interface {
	FetchDetail(ctx context.Context, name string) (*pokemon.Detail, error)
}

// Client talks to the upstream API over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the configured API root
func NewClient(cfg config.APISettings, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    cfg.RequestTimeout(),
		logger:     logging.GetGlobalLogger("pokeapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Results []pokemon.Summary `json:"results"`
}

type detailResponse struct {
	Name    string `json:"name"`
	Height  int    `json:"height"`
	Weight  int    `json:"weight"`
	Sprites struct {
		FrontDefault *string `json:"front_default"`
	} `json:"sprites"`
	Types []struct {
		Slot int `json:"slot"`
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
}

// ListSummaries requests up to limit summaries, in the order the API returns them
func (c *Client) ListSummaries(ctx context.Context, limit int) ([]pokemon.Summary, error) {
	if limit < 1 {
		return nil, errors.ValidationInvalid("limit", "must be at least 1")
	}

	endpoint := c.baseURL + "/pokemon?limit=" + strconv.Itoa(limit)

	var payload listResponse
	if err := c.getJSON(ctx, EndpointList, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return nil, errors.New(errors.ErrCodeUpstreamDecode, "listing response has no results").
			WithDetails(map[string]interface{}{"url": endpoint})
	}
	return payload.Results, nil
}

// FetchDetail requests the full record for name. The lookup key is lower-cased.
func (c *Client) FetchDetail(ctx context.Context, name string) (*pokemon.Detail, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, errors.ValidationRequired("name")
	}

	endpoint := c.baseURL + "/pokemon/" + url.PathEscape(key)

	var payload detailResponse
	if err := c.getJSON(ctx, EndpointDetail, endpoint, &payload); err != nil {
		return nil, err
	}

	detail := &pokemon.Detail{
		Name:   payload.Name,
		Height: payload.Height,
		Weight: payload.Weight,
		Types:  make([]string, 0, len(payload.Types)),
	}
	if payload.Sprites.FrontDefault != nil {
		detail.ImageURL = *payload.Sprites.FrontDefault
	}
	for _, t := range payload.Types {
		detail.Types = append(detail.Types, t.Type.Name)
	}
	return detail, nil
}

// getJSON issues a GET and decodes a 2xx JSON body into out
func (c *Client) getJSON(ctx context.Context, label, endpoint string, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if id := logging.GetRequestID(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.GetGlobalMetricsCollector().RecordUpstreamRequest(label, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.FromContext(ctxErr)
		}
		return errors.Wrapf(err, errors.ErrCodeUpstreamUnavailable, "upstream %s request failed", label).
			WithDetails(map[string]interface{}{"url": endpoint})
	}
	defer resp.Body.Close()

	logging.GetGlobalMetricsCollector().RecordUpstreamRequest(label, resp.StatusCode, time.Since(start))
	c.logger.DebugContext(ctx, "Upstream response",
		slog.String("endpoint", label),
		slog.String("url", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errors.FromUpstreamStatus(label, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.FromContext(ctxErr)
		}
		return errors.Wrap(err, errors.ErrCodeUpstreamDecode, fmt.Sprintf("malformed upstream %s payload", label)).
			WithDetails(map[string]interface{}{"url": endpoint})
	}
	return nil
}
