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
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkoukk/tiktoken-go"
	"k8s.io/klog/v2"
)

const (
	fetchTimeout    = 10 * time.Second
	maxRedirects    = 3
	maxContentBytes = 1 << 20

	// Pages are truncated to this many tokens before they are handed
	// to the model, so a single page cannot flood the context window.
	maxPageTokens = 2000

	pageCacheSize = 128
	pageCacheTTL  = 15 * time.Minute

	tokenEncoding = "cl100k_base"
)

// Fetching arbitrary URLs on behalf of a model is an SSRF hazard, so
// private and link-local destinations are refused, including after
// redirects and DNS resolution.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

var blockedHostSuffixes = []string{".localhost", ".local", ".internal"}

var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("parsing CIDR %q: %v", cidr, err))
		}
		privateIPBlocks = append(privateIPBlocks, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	host = strings.ToLower(host)
	if blockedHostnames[host] {
		return true
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// checkFetchTarget validates that a URL points at a public HTTP
// destination. The hostname is resolved so a DNS name cannot smuggle
// in a private address.
func checkFetchTarget(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if isBlockedHostname(host) {
		return fmt.Errorf("host %q is not allowed", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("host %q resolves to a private address", host)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving host %q: %w", host, err)
	}
	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return fmt.Errorf("host %q resolves to a private address", host)
		}
	}
	return nil
}

// PageContent is the readable content extracted from a fetched page.
type PageContent struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

type pageFetcher struct {
	client    *http.Client
	userAgent string
	cache     *expirable.LRU[string, *PageContent]

	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
}

func newPageFetcher(userAgent string) *pageFetcher {
	return &pageFetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return checkFetchTarget(req.Context(), req.URL)
			},
		},
		userAgent: userAgent,
		cache:     expirable.NewLRU[string, *PageContent](pageCacheSize, nil, pageCacheTTL),
	}
}

var (
	fetcherOnce   sync.Once
	sharedFetcher *pageFetcher
)

// defaultFetcher returns the process-wide page fetcher. The search and
// read tools share it so they also share the page cache.
func defaultFetcher() *pageFetcher {
	fetcherOnce.Do(func() {
		cfg, err := loadSearchConfig()
		if err != nil {
			klog.Warningf("falling back to default fetch configuration: %v", err)
			cfg.UserAgent = defaultUserAgent
		}
		sharedFetcher = newPageFetcher(cfg.UserAgent)
	})
	return sharedFetcher
}

// Fetch downloads a page and reduces it to readable Markdown.
func (f *pageFetcher) Fetch(ctx context.Context, rawURL string) (*PageContent, error) {
	if page, ok := f.cache.Get(rawURL); ok {
		return page, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	if err := checkFetchTarget(ctx, parsed); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", rawURL, err)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType != "" {
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}

	page := &PageContent{URL: rawURL}
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml" || mediaType == "":
		page.Title, page.Content, err = f.htmlToMarkdown(parsed, body)
		if err != nil {
			return nil, err
		}
	case strings.HasPrefix(mediaType, "text/") || mediaType == "application/json":
		page.Content = string(body)
	default:
		return nil, fmt.Errorf("unsupported content type %q for %q", mediaType, rawURL)
	}

	page.Content = cleanMarkdown(page.Content)
	page.Content, page.Truncated = f.truncate(page.Content, maxPageTokens)

	f.cache.Add(rawURL, page)
	return page, nil
}

func (f *pageFetcher) htmlToMarkdown(u *url.URL, body []byte) (title string, markdown string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", "", fmt.Errorf("parsing HTML from %q: %w", u, err)
	}

	title = strings.TrimSpace(doc.Find("head title").First().Text())

	mainContent := extractMainContent(doc)
	markdown, err = htmltomarkdown.ConvertString(mainContent,
		converter.WithDomain(fmt.Sprintf("%s://%s", u.Scheme, u.Host)))
	if err != nil {
		return "", "", fmt.Errorf("converting %q to markdown: %w", u, err)
	}
	return title, markdown, nil
}

// extractMainContent strips chrome elements and returns the HTML of the
// most content-like region of the page.
func extractMainContent(doc *goquery.Document) string {
	for _, tag := range []string{"script", "style", "nav", "header", "footer"} {
		doc.Find(tag).Remove()
	}

	for _, selector := range []string{"main", "#content, #main", ".content, .main", "article", "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if html, err := sel.Html(); err == nil && strings.TrimSpace(html) != "" {
			return html
		}
	}

	html, err := doc.Html()
	if err != nil {
		return ""
	}
	return html
}

var blankLines = regexp.MustCompile(`(\r?\n){3,}`)

func cleanMarkdown(s string) string {
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// truncate caps text at maxTokens tokens. If the tokenizer is not
// available it falls back to a character budget.
func (f *pageFetcher) truncate(text string, maxTokens int) (string, bool) {
	f.encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			klog.Warningf("loading %s token encoding: %v", tokenEncoding, err)
			return
		}
		f.encoder = enc
	})

	if f.encoder == nil {
		// Roughly four characters per token for English text.
		maxChars := maxTokens * 4
		if len(text) <= maxChars {
			return text, false
		}
		return text[:maxChars], true
	}

	tokens := f.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return f.encoder.Decode(tokens[:maxTokens]), true
}
