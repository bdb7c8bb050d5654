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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/docs-ai/docs-ai/pkg/llm"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

func init() {
	RegisterTool(&WebSearchTool{})
}

const maxConcurrentFetches = 5

type WebSearchTool struct {
	setupOnce sync.Once
	setupErr  error

	providers  []SearchProvider
	fetcher    *pageFetcher
	maxResults int
}

// setup is deferred until the first invocation so that configuration
// loaded by the CLI (for example from a .env file) is visible.
func (t *WebSearchTool) setup() error {
	t.setupOnce.Do(func() {
		cfg, err := loadSearchConfig()
		if err != nil {
			t.setupErr = err
			return
		}
		t.providers = newSearchProviders(cfg, &http.Client{Timeout: searchTimeout})
		t.fetcher = defaultFetcher()
		t.maxResults = cfg.MaxResults
	})
	return t.setupErr
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Searches the web and returns the readable content of the most relevant pages. Use this tool whenever the answer needs current information from the internet."
}

func (t *WebSearchTool) FunctionDefinition() *llm.FunctionDefinition {
	return &llm.FunctionDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &llm.Schema{
			Type: llm.TypeObject,
			Properties: map[string]*llm.Schema{
				"query": {
					Type:        llm.TypeString,
					Description: `The search query. Use a few focused keywords rather than a full sentence.`,
				},
				"max_results": {
					Type:        llm.TypeInteger,
					Description: `Maximum number of pages to include, between 1 and 10. Defaults to 5.`,
				},
				"site": {
					Type:        llm.TypeString,
					Description: `Optional domain to restrict the search to, for example "go.dev".`,
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *WebSearchTool) IsInteractive(args map[string]any) (bool, error) {
	return false, nil
}

// SearchDigest is the tool result handed back to the model.
type SearchDigest struct {
	Query   string `json:"query"`
	Content string `json:"content"`
}

func (t *WebSearchTool) Run(ctx context.Context, args map[string]any) (any, error) {
	if err := t.setup(); err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must be a non-empty string")
	}
	query = strings.TrimSpace(query)

	count := t.maxResults
	if v, found := args["max_results"]; found {
		if n, ok := asInt(v); ok && n > 0 {
			count = min(n, maxSearchCount)
		}
	}

	site, _ := args["site"].(string)
	if site == "" {
		site, _ = ctx.Value(SearchSiteKey).(string)
	}
	effectiveQuery := query
	if site != "" {
		effectiveQuery = fmt.Sprintf("site:%s %s", site, query)
	}

	results, err := runSearch(ctx, t.providers, effectiveQuery, count)
	if err != nil {
		return nil, err
	}
	results = filterResults(results, count)
	if len(results) == 0 {
		return &SearchDigest{
			Query:   query,
			Content: fmt.Sprintf("No results found for %q.", query),
		}, nil
	}

	return t.buildDigest(ctx, query, results), nil
}

// filterResults drops duplicate URLs and URLs that look like raw API
// endpoints, which tend to return JSON rather than readable text.
func filterResults(results []SearchResult, limit int) []SearchResult {
	seen := make(map[string]bool)
	filtered := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		if looksLikeAPIEndpoint(r.URL) {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == limit {
			break
		}
	}
	return filtered
}

func looksLikeAPIEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(u.Hostname()), "api.") {
		return true
	}
	return strings.Contains(strings.ToLower(u.Path), "/api/")
}

// buildDigest fetches the result pages concurrently and assembles a
// single Markdown document. A page that cannot be fetched degrades to
// its search snippet instead of failing the whole call.
func (t *WebSearchTool) buildDigest(ctx context.Context, query string, results []SearchResult) *SearchDigest {
	pages := make([]*PageContent, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, r := range results {
		g.Go(func() error {
			page, err := t.fetcher.Fetch(gctx, r.URL)
			if err != nil {
				klog.V(1).Infof("fetching search result %s: %v", r.URL, err)
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		klog.Warningf("fetching search results: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for %q:\n\n", query)
	for i, r := range results {
		title := r.Title
		if pages[i] != nil && pages[i].Title != "" {
			title = pages[i].Title
		}
		fmt.Fprintf(&sb, "## %d. %s\n\nSource: %s\n\n", i+1, title, r.URL)
		switch {
		case pages[i] != nil && pages[i].Content != "":
			sb.WriteString(pages[i].Content)
			sb.WriteString("\n\n")
		case r.Snippet != "":
			sb.WriteString(r.Snippet)
			sb.WriteString("\n\n")
		}
	}

	return &SearchDigest{
		Query:   query,
		Content: strings.TrimSpace(sb.String()),
	}
}

// asInt coerces the numeric types that arrive in decoded tool calls.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
