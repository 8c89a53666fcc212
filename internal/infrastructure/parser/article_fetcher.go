package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/ports"
)

// ErrNoArticleText is returned when a page has no paragraph text to classify.
var ErrNoArticleText = errors.New("page contains no article text")

// paragraphScopes are tried in order; the first one yielding text wins.
var paragraphScopes = []string{
	"article p",
	"main p",
	"[itemprop=\"articleBody\"] p",
	"body p",
}

// HTMLFetcher downloads a news page and extracts its headline and paragraphs.
type HTMLFetcher struct {
	client *http.Client
}

var _ ports.ArticleFetcher = (*HTMLFetcher)(nil)

// NewHTMLFetcher wires an HTTP client; a nil client gets a 20 second timeout.
func NewHTMLFetcher(client *http.Client) *HTMLFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLFetcher{client: client}
}

// Fetch implements ports.ArticleFetcher.
func (f *HTMLFetcher) Fetch(ctx context.Context, pageURL string) (domain.NewsRecord, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.NewsRecord{}, fmt.Errorf("invalid article url %q", pageURL)
	}

	doc, err := f.fetchDocument(ctx, parsed.String())
	if err != nil {
		return domain.NewsRecord{}, err
	}

	record := extractArticle(doc)
	if record.Body == "" {
		return domain.NewsRecord{}, fmt.Errorf("%s: %w", pageURL, ErrNoArticleText)
	}
	return record, nil
}

func (f *HTMLFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "FakeNewsDetector/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", parsedHost(pageURL), resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractArticle(doc *goquery.Document) domain.NewsRecord {
	title, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	title = strings.TrimSpace(title)
	if title == "" {
		title = normalizeSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = normalizeSpace(doc.Find("title").First().Text())
	}

	var body []string
	for _, scope := range paragraphScopes {
		doc.Find(scope).Each(func(_ int, p *goquery.Selection) {
			if text := normalizeSpace(p.Text()); text != "" {
				body = append(body, text)
			}
		})
		if len(body) > 0 {
			break
		}
	}

	return domain.NewsRecord{
		Title: title,
		Body:  strings.Join(body, " "),
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parsedHost(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		return u.Host
	}
	return pageURL
}
