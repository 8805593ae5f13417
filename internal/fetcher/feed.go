package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ratewatcher/internal/offers"
)

const (
	defaultOrigin    = "https://www.energizect.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/139.0.0.0 Safari/537.36"
)

// Options parameterise the marketplace feed client.
type Options struct {
	URL       string
	Origin    string
	Timeout   time.Duration
	UserAgent string
}

// Feed retrieves supplier offers from the marketplace search API. The
// endpoint sits behind bot protection, so requests carry a browser profile.
// The HTTP client is built lazily and released via Close.
type Feed struct {
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	client *http.Client
}

// NewFeed constructs a feed client.
func NewFeed(opts Options, logger zerolog.Logger) *Feed {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Origin == "" {
		opts.Origin = defaultOrigin
	}
	opts.Origin = strings.TrimRight(opts.Origin, "/")
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Feed{
		opts:   opts,
		logger: logger.With().Str("component", "feed_fetcher").Logger(),
	}
}

// FetchOffers performs one GET of the feed and returns the normalized offer
// set ranked ascending by rate.
func (f *Feed) FetchOffers(ctx context.Context) ([]offers.Offer, error) {
	if f.opts.URL == "" {
		return nil, errors.New("feed url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", f.opts.Origin+"/")
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, errors.New("feed returned 403 (request likely blocked by bot protection)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp.StatusCode, resp.Body)
	}

	doc, err := offers.DecodeDocument(resp.Body)
	if err != nil {
		return nil, err
	}

	records := doc.Records()
	ranked := offers.Rank(offers.Normalize(records, f.opts.Origin))

	f.logger.Debug().
		Int("records", len(records)).
		Int("offers", len(ranked)).
		Msg("feed fetched")

	return ranked, nil
}

// Close releases the underlying HTTP connections. Safe to call before any
// fetch has happened.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		f.client.CloseIdleConnections()
		f.client = nil
	}
}

func (f *Feed) httpClient() *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		f.client = &http.Client{Timeout: f.opts.Timeout}
	}
	return f.client
}

func httpError(status int, body io.Reader) error {
	payload, _ := io.ReadAll(io.LimitReader(body, 512))

	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("feed error (%d): %s", status, apiErr.Message)
	}
	if trimmed := strings.TrimSpace(string(payload)); trimmed != "" {
		return fmt.Errorf("feed error (%d): %s", status, trimmed)
	}
	return fmt.Errorf("feed error (%d)", status)
}

var _ Source = (*Feed)(nil)
