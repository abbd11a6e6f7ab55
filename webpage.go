package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// FetchTimeout bounds each page fetch
	FetchTimeout = 30 * time.Second

	// MaxPageContentLength caps the extracted text passed on to models
	MaxPageContentLength = 8000
)

// FetchURLContent downloads a web page and extracts its readable text for
// use as model context. Only http and https URLs are accepted. The result
// is the page title plus body text with boilerplate stripped, capped at
// MaxPageContentLength characters.
func FetchURLContent(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL has no host")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return extractReadableText(doc), nil
}

// extractReadableText pulls the title and main textual content out of a
// parsed page. Script, style and navigation chrome are removed first;
// headings, paragraphs and list items carry the substance of most pages.
func extractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var parts []string

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, "Title: "+title)
	}
	if desc, exists := doc.Find(`meta[name="description"]`).Attr("content"); exists {
		if desc = strings.TrimSpace(desc); desc != "" {
			parts = append(parts, "Description: "+desc)
		}
	}

	doc.Find("h1, h2, h3, h4, p, li").Each(func(i int, s *goquery.Selection) {
		text := collapseWhitespace(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	content := strings.Join(parts, "\n")
	if len(content) > MaxPageContentLength {
		content = content[:MaxPageContentLength]
	}
	return content
}

// collapseWhitespace trims a string and squeezes internal runs of
// whitespace (including &nbsp;) into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}
