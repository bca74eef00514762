package discovery

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FeedScreener/internal/domain"
)

var durationExpr = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)

// HTMLScanner extracts items from a feed listing page using the
// config-driven CSS selectors of the request.
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client; nil gets a 20s timeout.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan fetches the feed page and extracts one item per matched
// selector block. Blocks without a title are skipped.
func (h *HTMLScanner) Scan(ctx context.Context, req Request) ([]domain.Item, error) {
	if req.Selectors.Item == "" || req.Selectors.Title == "" {
		return nil, fmt.Errorf("feed %s: item and title selectors are required", req.FeedName)
	}

	doc, err := h.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
	}

	var items []domain.Item
	doc.Find(req.Selectors.Item).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(req.Selectors.Title).First().Text())
		if title == "" {
			return
		}

		item := domain.Item{Title: title}
		if req.Selectors.Channel != "" {
			item.Channel = strings.TrimSpace(sel.Find(req.Selectors.Channel).First().Text())
		}
		if req.Selectors.Duration != "" {
			raw := strings.TrimSpace(sel.Find(req.Selectors.Duration).First().Text())
			item.Duration = parseDuration(raw)
		}
		if req.Selectors.Metadata != "" {
			item.Metadata = strings.TrimSpace(sel.Find(req.Selectors.Metadata).First().Text())
		}

		items = append(items, item)
	})

	return items, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "FeedScreener/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseDuration reads "mm:ss" or "h:mm:ss" timestamps; anything else
// yields zero.
func parseDuration(raw string) time.Duration {
	m := durationExpr.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}

	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
}
