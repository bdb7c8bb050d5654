// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/caarlos0/env/v6"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"
)

const (
	defaultSearchCount = 5
	maxSearchCount     = 10

	searchTimeout = 30 * time.Second

	braveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"
	duckduckgoEndpoint  = "https://html.duckduckgo.com/html/"

	// Search front ends reject the default Go user agent.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	braveRequestsPerMinute      = 60
	duckduckgoRequestsPerMinute = 20
)

// SearchConfig controls which search back end is used and how.
// It is populated from the environment so that keys stay out of flags
// and process listings.
type SearchConfig struct {
	// Engine selects the back end: "brave", "duckduckgo", or "auto"
	// (brave when a key is present, duckduckgo otherwise).
	Engine string `env:"DOCS_AI_SEARCH_ENGINE" envDefault:"auto"`

	BraveAPIKey string `env:"BRAVE_API_KEY"`

	UserAgent string `env:"DOCS_AI_USER_AGENT"`

	MaxResults int `env:"DOCS_AI_SEARCH_MAX_RESULTS" envDefault:"5"`
}

func loadSearchConfig() (SearchConfig, error) {
	var cfg SearchConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing search configuration from environment: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultSearchCount
	}
	if cfg.MaxResults > maxSearchCount {
		cfg.MaxResults = maxSearchCount
	}
	return cfg, nil
}

// SearchResult is a single hit returned by a search back end.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchProvider is a web search back end. Providers are tried in order;
// the first one to return results wins.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

func newSearchProviders(cfg SearchConfig, client *http.Client) []SearchProvider {
	brave := &braveProvider{
		apiKey:    cfg.BraveAPIKey,
		endpoint:  braveSearchEndpoint,
		userAgent: cfg.UserAgent,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(float64(braveRequestsPerMinute)/60.0), 1),
	}
	ddg := &duckduckgoProvider{
		endpoint:  duckduckgoEndpoint,
		userAgent: cfg.UserAgent,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(float64(duckduckgoRequestsPerMinute)/60.0), 2),
	}

	switch cfg.Engine {
	case "brave":
		return []SearchProvider{brave}
	case "duckduckgo":
		return []SearchProvider{ddg}
	default:
		if cfg.BraveAPIKey != "" {
			return []SearchProvider{brave, ddg}
		}
		return []SearchProvider{ddg}
	}
}

// runSearch queries the providers in order and returns the first
// non-empty result set.
func runSearch(ctx context.Context, providers []SearchProvider, query string, count int) ([]SearchResult, error) {
	var lastErr error
	for _, provider := range providers {
		results, err := provider.Search(ctx, query, count)
		if err != nil {
			klog.Warningf("search provider %s failed: %v", provider.Name(), err)
			lastErr = err
			continue
		}
		if len(results) == 0 {
			continue
		}
		return results, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all search providers failed: %w", lastErr)
	}
	return nil, nil
}

type braveProvider struct {
	apiKey    string
	endpoint  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func (p *braveProvider) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (p *braveProvider) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("brave search requires BRAVE_API_KEY")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying brave search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding brave search response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}

type duckduckgoProvider struct {
	endpoint  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func (p *duckduckgoProvider) Name() string { return "duckduckgo" }

func (p *duckduckgoProvider) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing duckduckgo response: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if len(results) >= count {
			return
		}
		link := s.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		target := decodeDuckDuckGoURL(href)
		title := strings.TrimSpace(link.Text())
		if target == "" || title == "" {
			return
		}
		results = append(results, SearchResult{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
	})
	return results, nil
}

// decodeDuckDuckGoURL unwraps the redirect DuckDuckGo puts around result
// links, of the form //duckduckgo.com/l/?uddg=<encoded>&rut=...
func decodeDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}
