package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

// TestExtractReadableText tests boilerplate stripping and text extraction
func TestExtractReadableText(t *testing.T) {
	html := `<html>
<head>
	<title>  Go Concurrency Patterns  </title>
	<meta name="description" content="An overview of goroutines and channels.">
	<script>var tracking = true;</script>
	<style>body { color: red; }</style>
</head>
<body>
	<nav><a href="/">Home</a></nav>
	<h1>Go Concurrency Patterns</h1>
	<p>Goroutines are lightweight.</p>
	<ul><li>Channels</li><li>Select</li></ul>
	<footer>Copyright notice</footer>
</body>
</html>`

	text := extractReadableText(parseHTML(t, html))

	for _, want := range []string{
		"Title: Go Concurrency Patterns",
		"Description: An overview of goroutines and channels.",
		"Goroutines are lightweight.",
		"Channels",
		"Select",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Missing %q in extracted text:\n%s", want, text)
		}
	}

	for _, unwanted := range []string{"tracking", "color: red", "Home", "Copyright"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("Boilerplate %q should be stripped, got:\n%s", unwanted, text)
		}
	}
}

// TestExtractReadableTextTruncation tests the content length cap
func TestExtractReadableTextTruncation(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 200; i++ {
		b.WriteString("<p>" + strings.Repeat("word ", 20) + "</p>")
	}
	b.WriteString("</body></html>")

	text := extractReadableText(parseHTML(t, b.String()))

	if len(text) > MaxPageContentLength {
		t.Errorf("Extracted text length = %d, want at most %d", len(text), MaxPageContentLength)
	}
}

// TestCollapseWhitespace tests whitespace normalization
func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello   world  ", "hello world"},
		{"line\none\n\tline two", "line one line two"},
		{"non breaking space", "non breaking space"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := collapseWhitespace(tt.input); got != tt.expected {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// TestFetchURLContent tests the end-to-end fetch and extraction
func TestFetchURLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected a User-Agent header")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Fetched</title></head><body><p>Body text.</p></body></html>`))
	}))
	defer server.Close()

	ctx := context.Background()
	content, err := FetchURLContent(ctx, server.URL)
	if err != nil {
		t.Fatalf("FetchURLContent failed: %v", err)
	}

	if !strings.Contains(content, "Title: Fetched") || !strings.Contains(content, "Body text.") {
		t.Errorf("Content = %q, want title and body text", content)
	}
}

// TestFetchURLContentErrors tests rejection of bad URLs and upstream failures
func TestFetchURLContentErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported scheme", func(t *testing.T) {
		if _, err := FetchURLContent(ctx, "ftp://example.com/file"); err == nil {
			t.Error("Expected error for non-http scheme")
		}
	})

	t.Run("missing host", func(t *testing.T) {
		if _, err := FetchURLContent(ctx, "https://"); err == nil {
			t.Error("Expected error for URL without host")
		}
	})

	t.Run("non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		if _, err := FetchURLContent(ctx, server.URL); err == nil {
			t.Error("Expected error for 404 response")
		}
	})
}
