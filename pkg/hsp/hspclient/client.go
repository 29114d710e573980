// Package hspclient talks to the Rail Delivery Group HSP API. Retry policy
// lives here, at the collaborator boundary; the journey state machines
// never retry on their own.
package hspclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/latemate/latemate/pkg/hsp"
	"github.com/latemate/latemate/pkg/util"
)

const (
	defaultBaseURL = "https://hsp-prod.rockshore.net/api/v1"
	defaultTimeout = 30 * time.Second

	metricsEndpoint = "serviceMetrics"
	detailsEndpoint = "serviceDetails"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	maxRetries uint64

	stations hsp.StationLookup
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithCredentials(username string, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// New creates a client with credentials taken from the environment unless
// overridden. The station lookup resolves CRS codes in parsed responses.
func New(stations hsp.StationLookup, opts ...Option) *Client {
	env := util.GetEnvironmentVariables()

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		username:   env["LATEMATE_NATRAIL_USERNAME"],
		password:   env["LATEMATE_NATRAIL_PASSWORD"],
		maxRetries: 3,
		stations:   stations,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ServiceMetrics runs one historical performance search.
func (c *Client) ServiceMetrics(ctx context.Context, req hsp.MetricsRequest) (*hsp.MetricsCollection, error) {
	body, err := json.Marshal(req.Raw())
	if err != nil {
		return nil, err
	}

	_, responseBody, err := c.Forward(ctx, metricsEndpoint, body)
	if err != nil {
		return nil, err
	}

	var raw hsp.RawMetricsResponse
	if err := json.Unmarshal(responseBody, &raw); err != nil {
		return nil, fmt.Errorf("decode metrics response: %w", err)
	}

	return hsp.ParseMetricsCollection(ctx, &raw, c.stations)
}

// JourneyDetails fetches the stop-by-stop record for one occurrence.
func (c *Client) JourneyDetails(ctx context.Context, id hsp.ServiceID) (*hsp.JourneyDetails, error) {
	body, err := json.Marshal(hsp.RawDetailsRequest{RID: id.String()})
	if err != nil {
		return nil, err
	}

	_, responseBody, err := c.Forward(ctx, detailsEndpoint, body)
	if err != nil {
		return nil, err
	}

	var raw hsp.RawDetailsResponse
	if err := json.Unmarshal(responseBody, &raw); err != nil {
		return nil, fmt.Errorf("decode details response: %w", err)
	}

	return hsp.ParseJourneyDetails(ctx, &raw, c.stations)
}

// Forward posts a raw JSON body to an HSP endpoint with basic auth and
// bounded exponential backoff on transient failures. The proxy routes use
// it directly; the typed methods above layer parsing on top.
func (c *Client) Forward(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	var statusCode int
	var responseBody []byte

	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		request.Header.Set("Content-Type", "application/json")
		request.SetBasicAuth(c.username, c.password)

		response, err := c.httpClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		responseBody, err = io.ReadAll(response.Body)
		if err != nil {
			return err
		}

		statusCode = response.StatusCode

		if response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("hsp %s returned status %d", endpoint, response.StatusCode)
		}
		if response.StatusCode >= http.StatusBadRequest {
			// Client errors will not get better with retries.
			return backoff.Permanent(fmt.Errorf("hsp %s returned status %d", endpoint, response.StatusCode))
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	if err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("endpoint", endpoint).Str("wait", wait.String()).Msg("Retrying HSP request")
	}); err != nil {
		return statusCode, nil, err
	}

	return statusCode, responseBody, nil
}
