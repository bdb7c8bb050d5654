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
	"strings"
	"testing"
)

func TestFilterResults(t *testing.T) {
	in := []SearchResult{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "duplicate of a", URL: "https://example.com/a"},
		{Title: "api host", URL: "https://api.example.com/v1/users"},
		{Title: "api path", URL: "https://example.com/api/v2/things"},
		{Title: "b", URL: "https://example.com/b"},
		{Title: "c", URL: "https://example.com/c"},
	}

	got := filterResults(in, 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].URL != "https://example.com/a" || got[1].URL != "https://example.com/b" {
		t.Errorf("unexpected results %+v", got)
	}
}

func TestLooksLikeAPIEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://api.github.com/repos", true},
		{"https://example.com/api/v1", true},
		{"https://example.com/docs", false},
		{"https://rapid.example.com/", false},
		{"https://example.com/rapids", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := looksLikeAPIEndpoint(tt.url); got != tt.want {
				t.Errorf("looksLikeAPIEndpoint(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
		ok    bool
	}{
		{"float64", float64(3), 3, true},
		{"int", 4, 4, true},
		{"int64", int64(7), 7, true},
		{"numeric string", "5", 5, true},
		{"bad string", "x", 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asInt(tt.value)
			if got != tt.want || ok != tt.ok {
				t.Errorf("asInt(%v) = (%d, %v), want (%d, %v)", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// newStubbedSearchTool builds a WebSearchTool whose providers are
// replaced and whose setup is marked done, so no environment or network
// configuration is involved.
func newStubbedSearchTool(providers ...SearchProvider) *WebSearchTool {
	tool := &WebSearchTool{}
	tool.setupOnce.Do(func() {})
	tool.maxResults = defaultSearchCount
	tool.providers = providers
	tool.fetcher = newPageFetcher(defaultUserAgent)
	return tool
}

func TestWebSearchToolDigestFallsBackToSnippets(t *testing.T) {
	// The result URLs point at loopback, which the fetcher refuses, so
	// the digest must degrade to the search snippets.
	provider := &stubProvider{name: "stub", results: []SearchResult{
		{Title: "First", URL: "http://127.0.0.1:9/a", Snippet: "first snippet"},
		{Title: "Second", URL: "http://127.0.0.1:9/b", Snippet: "second snippet"},
	}}
	tool := newStubbedSearchTool(provider)

	out, err := tool.Run(context.Background(), map[string]any{"query": "anything"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	digest, ok := out.(*SearchDigest)
	if !ok {
		t.Fatalf("Run returned %T, want *SearchDigest", out)
	}
	if digest.Query != "anything" {
		t.Errorf("digest query = %q", digest.Query)
	}
	for _, want := range []string{"## 1. First", "first snippet", "Source: http://127.0.0.1:9/a", "## 2. Second", "second snippet"} {
		if !strings.Contains(digest.Content, want) {
			t.Errorf("digest missing %q:\n%s", want, digest.Content)
		}
	}
}

func TestWebSearchToolRejectsEmptyQuery(t *testing.T) {
	tool := newStubbedSearchTool(&stubProvider{name: "stub"})

	if _, err := tool.Run(context.Background(), map[string]any{"query": "   "}); err == nil {
		t.Error("expected error for blank query")
	}
	if _, err := tool.Run(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing query")
	}
}

func TestWebSearchToolNoResults(t *testing.T) {
	tool := newStubbedSearchTool(&stubProvider{name: "stub"})

	out, err := tool.Run(context.Background(), map[string]any{"query": "nothing to find"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	digest := out.(*SearchDigest)
	if !strings.Contains(digest.Content, "No results found") {
		t.Errorf("digest = %q", digest.Content)
	}
}

func TestWebSearchToolSiteRestriction(t *testing.T) {
	provider := &stubProvider{name: "stub"}
	tool := newStubbedSearchTool(provider)

	ctx := context.WithValue(context.Background(), SearchSiteKey, "go.dev")
	if _, err := tool.Run(ctx, map[string]any{"query": "http server"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if provider.lastQuery != "site:go.dev http server" {
		t.Errorf("query = %q, want the configured site restriction applied", provider.lastQuery)
	}

	// An explicit site argument wins over the configured one.
	if _, err := tool.Run(ctx, map[string]any{"query": "templates", "site": "pkg.go.dev"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if provider.lastQuery != "site:pkg.go.dev templates" {
		t.Errorf("query = %q, want the argument site restriction applied", provider.lastQuery)
	}
}

func TestWebSearchToolMaxResultsArgument(t *testing.T) {
	provider := &stubProvider{name: "stub", results: []SearchResult{
		{Title: "1", URL: "http://127.0.0.1:9/1", Snippet: "s1"},
		{Title: "2", URL: "http://127.0.0.1:9/2", Snippet: "s2"},
		{Title: "3", URL: "http://127.0.0.1:9/3", Snippet: "s3"},
	}}
	tool := newStubbedSearchTool(provider)

	out, err := tool.Run(context.Background(), map[string]any{"query": "q", "max_results": float64(2)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	digest := out.(*SearchDigest)
	if strings.Contains(digest.Content, "## 3.") {
		t.Errorf("digest includes more than max_results entries:\n%s", digest.Content)
	}
	if !strings.Contains(digest.Content, "## 2.") {
		t.Errorf("digest missing second entry:\n%s", digest.Content)
	}
}
