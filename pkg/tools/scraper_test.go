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
	"net"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestCheckFetchTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"public ip", "http://93.184.216.34/page", false},
		{"public ip https", "https://8.8.8.8/", false},
		{"loopback", "http://127.0.0.1:8080/", true},
		{"localhost", "http://localhost/", true},
		{"localhost subdomain", "http://foo.localhost/", true},
		{"cloud metadata", "http://metadata.google.internal/computeMetadata/v1/", true},
		{"internal suffix", "https://vault.corp.internal/", true},
		{"rfc1918 ten", "http://10.1.2.3/", true},
		{"rfc1918 oneninetwo", "http://192.168.1.1/admin", true},
		{"link local", "http://169.254.169.254/latest/meta-data/", true},
		{"carrier nat", "http://100.64.0.1/", true},
		{"ipv6 loopback", "http://[::1]/", true},
		{"ipv6 unique local", "http://[fc00::1]/", true},
		{"ftp scheme", "ftp://example.com/file", true},
		{"no host", "http:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatalf("parsing %q: %v", tt.url, err)
			}
			err = checkFetchTarget(context.Background(), u)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFetchTarget(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"10.0.0.1", true},
		{"8.8.8.8", false},
		{"fe80::1", true},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("parsing %q", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.want {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestExtractMainContent(t *testing.T) {
	html := `<html><head><title>T</title><script>var tracked = true;</script></head>
<body><nav>site menu</nav><main><h1>Welcome</h1><p>Body text.</p></main><footer>footer links</footer></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}

	content := extractMainContent(doc)
	if !strings.Contains(content, "Body text.") {
		t.Errorf("main content missing body text: %q", content)
	}
	for _, chrome := range []string{"site menu", "footer links", "tracked"} {
		if strings.Contains(content, chrome) {
			t.Errorf("main content includes stripped element %q: %q", chrome, content)
		}
	}
}

func TestExtractMainContentFallsBackToBody(t *testing.T) {
	html := `<html><body><p>Plain body.</p></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if content := extractMainContent(doc); !strings.Contains(content, "Plain body.") {
		t.Errorf("body fallback missing content: %q", content)
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "\n\n# Title\n\n\n\n\nText\n\n\n- item\n\n\n\n"
	want := "# Title\n\nText\n\n- item"
	if got := cleanMarkdown(in); got != want {
		t.Errorf("cleanMarkdown = %q, want %q", got, want)
	}
}

func TestTruncateFallback(t *testing.T) {
	f := &pageFetcher{}
	// Mark the tokenizer as initialized without one, forcing the
	// character budget path.
	f.encoderOnce.Do(func() {})

	long := strings.Repeat("a", 100)
	got, truncated := f.truncate(long, 10)
	if !truncated {
		t.Error("expected truncation")
	}
	if len(got) != 40 {
		t.Errorf("truncated length = %d, want 40", len(got))
	}

	got, truncated = f.truncate("abc", 10)
	if truncated || got != "abc" {
		t.Errorf("short text changed: %q truncated=%v", got, truncated)
	}
}

func TestHTMLToMarkdown(t *testing.T) {
	u, err := url.Parse("https://docs.example.com/guide")
	if err != nil {
		t.Fatal(err)
	}
	body := []byte(`<html><head><title>Guide</title></head>
<body><main><h1>Getting Started</h1><p>Read <a href="/install">the install page</a>.</p></main></body></html>`)

	f := &pageFetcher{}
	title, md, err := f.htmlToMarkdown(u, body)
	if err != nil {
		t.Fatalf("htmlToMarkdown: %v", err)
	}
	if title != "Guide" {
		t.Errorf("title = %q, want Guide", title)
	}
	if !strings.Contains(md, "Getting Started") {
		t.Errorf("markdown missing heading: %q", md)
	}
	if !strings.Contains(md, "https://docs.example.com/install") {
		t.Errorf("relative link not resolved against the page domain: %q", md)
	}
}
