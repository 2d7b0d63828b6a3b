// Package wordimport pulls vocabulary candidates out of a Japanese web
// article: fetch, extract the readable body, tokenize.
package wordimport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/abhisek/shadowdeck/internal/furigana"
)

// MaxBodySize caps how much HTML is read from a page.
const MaxBodySize = 10 << 20

// ErrTooLarge is returned when a page exceeds MaxBodySize.
var ErrTooLarge = errors.New("page exceeds size limit")

// Extractor finds content words in plain text.
type Extractor interface {
	ContentWords(text string) []furigana.Word
}

// Article is the result of an import.
type Article struct {
	Title string
	Words []furigana.Word
}

// Importer fetches pages and extracts words.
type Importer struct {
	client    *http.Client
	extractor Extractor
	userAgent string
}

// New creates an Importer. client may be nil.
func New(extractor Extractor, client *http.Client) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Importer{
		client:    client,
		extractor: extractor,
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Import fetches rawURL and returns up to limit content words from its
// main text, in order of first appearance. limit <= 0 means no cap.
func (im *Importer) Import(ctx context.Context, rawURL string, limit int) (Article, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Article{}, fmt.Errorf("invalid url %q", rawURL)
	}

	body, err := im.fetch(ctx, u)
	if err != nil {
		return Article{}, err
	}

	article, err := readability.FromReader(bytes.NewReader(StripRuby(body)), u)
	if err != nil {
		return Article{}, fmt.Errorf("extract article: %w", err)
	}

	words := im.extractor.ContentWords(article.TextContent)
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return Article{Title: article.Title, Words: words}, nil
}

func (im *Importer) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", im.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, ErrTooLarge
	}

	// One extra byte tells a page of exactly MaxBodySize from a longer one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}

var (
	reRT = regexp.MustCompile(`(?is)<rt[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?is)<rp[^>]*>.*?</rp>`)
)

// StripRuby removes <rt> and <rp> elements so readings in the page's own
// furigana do not show up as words.
func StripRuby(html []byte) []byte {
	out := reRT.ReplaceAll(html, nil)
	return reRP.ReplaceAll(out, nil)
}
