package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const maxTitlePageBytes = 2 << 20

// TitleResolver looks up a human readable title for a submitted page URL.
type TitleResolver struct {
	httpClient *http.Client
}

// NewTitleResolver creates a resolver with a short request timeout
func NewTitleResolver(httpClient *http.Client) *TitleResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TitleResolver{httpClient: httpClient}
}

// Resolve fetches the page and returns its og:title, <title> or the
// readability title, in that order.
func (r *TitleResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; vidscribe/1.0)")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTitlePageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	return ExtractTitle(string(body))
}

// ExtractTitle pulls a title out of an HTML document.
func ExtractTitle(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if title = strings.TrimSpace(title); title != "" {
			return title, nil
		}
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	return "", fmt.Errorf("title not found in HTML")
}
