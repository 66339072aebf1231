package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

const maxCount = 200

// Searcher is the retrieval collaborator boundary consumed by the pipeline.
type Searcher interface {
	SearchObservations(ctx context.Context, req SearchRequest) (*models.Bundle, error)
}

// Options configures the observation search client. When TokenURL is set
// the client authenticates with OAuth2 client credentials.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	MaxItemsCap  int
}

// Client talks to the observation search service. Transport and search
// errors propagate to the caller unchanged: a failed fetch aborts the run.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxItemsCap int
}

func NewClient(opts Options) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	httpClient := &http.Client{Timeout: opts.Timeout, Transport: transport}
	if opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &oauth2Transport{source: cc.TokenSource(context.Background()), base: transport},
		}
	}

	cap := opts.MaxItemsCap
	if cap <= 0 {
		cap = maxCount
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  httpClient,
		maxItemsCap: cap,
	}
}

type oauth2Transport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("fhir token: %w", err)
	}
	clone := req.Clone(req.Context())
	token.SetAuthHeader(clone)
	return t.base.RoundTrip(clone)
}

type SearchRequest struct {
	PatientID string
	Codes     []string
	Since     string
	Until     string
	Count     int
	MaxItems  int
}

// SearchObservations runs one observation search. The code parameter is the
// comma-joined canonical code list; count is clamped to the service limit.
func (c *Client) SearchObservations(ctx context.Context, req SearchRequest) (*models.Bundle, error) {
	if req.PatientID == "" {
		return nil, fmt.Errorf("patientId is required")
	}

	count := req.Count
	if count <= 0 || count > maxCount {
		count = maxCount
	}
	maxItems := req.MaxItems
	if maxItems <= 0 || maxItems > c.maxItemsCap {
		maxItems = c.maxItemsCap
	}

	values := url.Values{}
	values.Set("patientId", req.PatientID)
	if len(req.Codes) > 0 {
		values.Set("code", strings.Join(req.Codes, ","))
	}
	if req.Since != "" {
		values.Set("since", req.Since)
	}
	if req.Until != "" {
		values.Set("until", req.Until)
	}
	values.Set("count", strconv.Itoa(count))
	values.Set("maxItems", strconv.Itoa(maxItems))

	endpoint := fmt.Sprintf("%s/observations?%s", c.baseURL, values.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("observation search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("observation search read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("observation search returned status %d", resp.StatusCode)
	}

	var payload struct {
		Items         []models.ObservationRecord `json:"items"`
		TotalReturned int                        `json:"totalReturned"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("observation search decode: %w", err)
	}

	return &models.Bundle{Entries: payload.Items, TotalReturned: payload.TotalReturned}, nil
}
