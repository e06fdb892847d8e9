// Package catalog pulls product listings from the product service for full
// reindexing.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/pkg/httpclient"
)

// ProductsPath is the listing endpoint of the product service.
const ProductsPath = "/api/v1/products"

// MaxPages guards against a product service that never reports the last page.
const MaxPages = 10000

// Getter performs a GET and decodes the JSON body.
type Getter interface {
	GetJSON(ctx context.Context, url string, dst any) error
}

// Client reads the product listing page by page.
type Client struct {
	http     Getter
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

// NewClient creates a client for the product service at baseURL.
func NewClient(baseURL string, pageSize int, getter Getter, logger *slog.Logger) *Client {
	return &Client{
		http:     getter,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		logger:   logger,
	}
}

// NewHTTPClient builds the retrying, circuit-broken HTTP client used to reach
// the product service.
func NewHTTPClient(timeout time.Duration, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig("product-service"),
		logger,
	)
}

// page is the paginated listing envelope.
type page struct {
	Data       []json.RawMessage `json:"data"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

type ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type image struct {
	URL string `json:"url"`
}

// product is the listing item as served by the product service. Prices come
// either as a decimal "price" or as "base_price" in minor units.
type product struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Price          *float64   `json:"price"`
	BasePrice      *int64     `json:"base_price"`
	CompareAtPrice *float64   `json:"compare_at_price"`
	Category       *ref       `json:"category"`
	Brand          *ref       `json:"brand"`
	PrimaryImage   *image     `json:"primary_image"`
	Images         []image    `json:"images"`
	Tags           []string   `json:"tags"`
	Rating         *float64   `json:"rating"`
	ReviewCount    *int       `json:"review_count"`
	Stock          *int       `json:"stock"`
	Sales          *float64   `json:"sales"`
	CreatedAt      *time.Time `json:"created_at"`
}

// FetchAll walks every listing page and hands each page's records to fn. It
// returns the number of records delivered. Items that fail to decode, have no
// id or are not published are skipped.
func (c *Client) FetchAll(ctx context.Context, fn func([]domain.ProductRecord) error) (int, error) {
	total := 0
	for n := 1; n <= MaxPages; n++ {
		var p page
		if err := c.http.GetJSON(ctx, c.pageURL(n), &p); err != nil {
			return total, fmt.Errorf("fetch products page %d: %w", n, err)
		}
		if len(p.Data) == 0 {
			break
		}

		records := c.decode(p.Data, n)
		if len(records) > 0 {
			if err := fn(records); err != nil {
				return total, fmt.Errorf("apply products page %d: %w", n, err)
			}
			total += len(records)
		}

		if p.TotalPages > 0 && n >= p.TotalPages {
			break
		}
	}
	return total, nil
}

func (c *Client) pageURL(n int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	q.Set("per_page", strconv.Itoa(c.pageSize))
	return c.baseURL + ProductsPath + "?" + q.Encode()
}

func (c *Client) decode(items []json.RawMessage, pageNum int) []domain.ProductRecord {
	out := make([]domain.ProductRecord, 0, len(items))
	for i, raw := range items {
		var p product
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Warn("skipping malformed product",
				slog.Int("page", pageNum),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if p.ID == "" || !domain.IsPublished(p.Status) {
			continue
		}
		out = append(out, p.record())
	}
	return out
}

func (p *product) record() domain.ProductRecord {
	rec := domain.ProductRecord{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		CompareAtPrice: p.CompareAtPrice,
		Tags:           p.Tags,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Sales:          p.Sales,
		CreatedAt:      p.CreatedAt,
	}

	switch {
	case p.Price != nil:
		rec.Price = *p.Price
	case p.BasePrice != nil:
		rec.Price = float64(*p.BasePrice) / 100
	}
	if p.Category != nil {
		rec.Category = p.Category.Name
	}
	if p.Brand != nil {
		rec.Brand = p.Brand.Name
	}
	if p.Stock != nil {
		rec.Stock = *p.Stock
	}

	if p.PrimaryImage != nil && p.PrimaryImage.URL != "" {
		rec.Images = append(rec.Images, p.PrimaryImage.URL)
	}
	for _, img := range p.Images {
		if img.URL != "" && (p.PrimaryImage == nil || img.URL != p.PrimaryImage.URL) {
			rec.Images = append(rec.Images, img.URL)
		}
	}
	return rec
}
