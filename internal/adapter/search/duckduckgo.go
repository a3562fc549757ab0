// Package search looks up short market insights on the web for career,
// salary and interview questions. Lookups are best effort: any failure,
// timeout or empty page yields a fixed set of fallback insights instead.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/config"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/pkg/textx"
)

const (
	maxInsightRunes = 220
	maxBodyBytes    = 2 << 20
	userAgent       = "Mozilla/5.0 (compatible; cv-assistant/1.0)"
)

var errNoResults = errors.New("no results")

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	baseURL    string
	maxResults int
	timeout    time.Duration
	retry      config.SearchBackoff
	httpClient *http.Client
	breaker    *observability.CircuitBreaker
}

var _ domain.WebSearcher = (*DuckDuckGo)(nil)

// NewDuckDuckGo builds a searcher from config with an otelhttp transport.
func NewDuckDuckGo(cfg config.Config) *DuckDuckGo {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Search %s %s", r.Method, r.URL.Host)
		}),
	)
	maxResults := cfg.SearchMaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &DuckDuckGo{
		baseURL:    cfg.SearchBaseURL,
		maxResults: maxResults,
		timeout:    cfg.SearchTimeout,
		retry:      cfg.GetSearchBackoff(),
		httpClient: &http.Client{Transport: transport},
		breaker:    observability.NewCircuitBreaker("web_search", 5, 30*time.Second),
	}
}

// Insights returns up to maxResults one-line insights for query. It never
// fails; the fallback list for intent stands in for any error.
func (d *DuckDuckGo) Insights(ctx context.Context, query string, intent domain.Intent) []string {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		observability.ObserveSearch("empty", time.Since(start))
		return Fallback(intent)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var (
		out   []string
		empty bool
	)
	err := d.breaker.Call(func() error {
		var err error
		out, err = d.fetchWithRetry(ctx, query)
		if errors.Is(err, errNoResults) {
			empty = true
			return nil
		}
		return err
	})

	lg := observability.LoggerFromContext(ctx)
	switch {
	case errors.Is(err, observability.ErrCircuitOpen):
		observability.ObserveSearch("circuit_open", time.Since(start))
		return Fallback(intent)
	case err != nil:
		lg.Warn("web search failed; using fallback insights",
			slog.String("intent", string(intent)),
			slog.Any("error", err))
		observability.ObserveSearch("error", time.Since(start))
		return Fallback(intent)
	}
	if empty {
		observability.ObserveSearch("empty", time.Since(start))
		return Fallback(intent)
	}
	observability.ObserveSearch("ok", time.Since(start))
	return out
}

func (d *DuckDuckGo) fetchWithRetry(ctx context.Context, query string) ([]string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = d.retry.MaxElapsedTime
	expo.InitialInterval = d.retry.InitialInterval
	expo.MaxInterval = d.retry.MaxInterval
	if d.retry.Multiplier > 0 {
		expo.Multiplier = d.retry.Multiplier
	}

	var out []string
	op := func() error {
		res, err := d.fetch(ctx, query)
		if err != nil {
			return err
		}
		out = res
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string) ([]string, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("op=search.parse_url: %w", err))
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("op=search.new_request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("op=search.do: %w: %v", domain.ErrUpstreamTimeout, err))
		}
		return nil, fmt.Errorf("op=search.do: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("op=search.do: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("op=search.do: status %d", resp.StatusCode))
	}

	res, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes), d.maxResults)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return res, nil
}

// parseResults reads result titles and snippets from a DuckDuckGo HTML page.
func parseResults(r io.Reader, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("op=search.parse: %w", err)
	}
	var out []string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		title := collapse(s.Find(".result__a").First().Text())
		snippet := collapse(s.Find(".result__snippet").First().Text())
		var line string
		switch {
		case title != "" && snippet != "":
			line = title + ": " + snippet
		case snippet != "":
			line = snippet
		default:
			line = title
		}
		if line == "" {
			return true
		}
		out = append(out, textx.Truncate(line, maxInsightRunes))
		return len(out) < limit
	})
	if len(out) == 0 {
		return nil, errNoResults
	}
	return out, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
