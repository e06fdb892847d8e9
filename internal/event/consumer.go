package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
	apperrors "github.com/utafrali/catalogsearch/pkg/errors"
	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"
)

// Kafka topics of the product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// Event types, as carried in the envelope. Producers may also use the full
// topic name.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// Ref is a nested {id, name} reference.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductEventData is the payload of product created and updated events.
// The price arrives either as a decimal "price" or as "base_price" in minor
// units; category and brand either nested or as flat names.
type ProductEventData struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Price          *float64   `json:"price,omitempty"`
	BasePrice      *int64     `json:"base_price,omitempty"`
	CompareAtPrice *float64   `json:"compare_at_price,omitempty"`
	Category       *Ref       `json:"category,omitempty"`
	CategoryName   string     `json:"category_name,omitempty"`
	Brand          *Ref       `json:"brand,omitempty"`
	BrandName      string     `json:"brand_name,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	Images         []string   `json:"images,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	ReviewCount    *int       `json:"review_count,omitempty"`
	Stock          int        `json:"stock"`
	Sales          *float64   `json:"sales,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Consumer handles Kafka events related to product changes for search indexing.
type Consumer struct {
	searchService *service.SearchService
	logger        *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(searchService *service.SearchService, logger *slog.Logger) *Consumer {
	return &Consumer{
		searchService: searchService,
		logger:        logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch strings.TrimPrefix(event.EventType, pkgkafka.TopicPrefix+".") {
	case EventProductCreated, EventProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case EventProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted indexes a created or updated product. A product that
// is no longer published is removed from the index instead.
func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	if !domain.IsPublished(data.Status) {
		if err := c.removeIfPresent(ctx, data.ID); err != nil {
			return err
		}
		c.logger.InfoContext(ctx, "removed unpublished product from index",
			slog.String("product_id", data.ID),
			slog.String("status", data.Status),
		)
		return nil
	}

	record := data.Record()
	if err := c.searchService.IndexProduct(ctx, &record); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("product_id", data.ID),
		slog.String("event_type", event.EventType),
	)
	return nil
}

// handleProductDeleted removes a deleted product from the index. Deleting a
// product that is not indexed is not an error, so redelivery is harmless.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if len(event.Data) > 0 {
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}

	if err := c.removeIfPresent(ctx, data.ID); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "deleted product from index",
		slog.String("product_id", data.ID),
	)
	return nil
}

func (c *Consumer) removeIfPresent(ctx context.Context, id string) error {
	err := c.searchService.DeleteProduct(ctx, id)
	if err == nil || errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("delete product %s: %w", id, err)
}

// Record converts the event payload into a catalog record.
func (d *ProductEventData) Record() domain.ProductRecord {
	rec := domain.ProductRecord{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Category:       d.CategoryName,
		Brand:          d.BrandName,
		CompareAtPrice: d.CompareAtPrice,
		Tags:           d.Tags,
		Rating:         d.Rating,
		ReviewCount:    d.ReviewCount,
		Stock:          d.Stock,
		Sales:          d.Sales,
		CreatedAt:      d.CreatedAt,
	}

	switch {
	case d.Price != nil:
		rec.Price = *d.Price
	case d.BasePrice != nil:
		rec.Price = float64(*d.BasePrice) / 100
	}
	if d.Category != nil && d.Category.Name != "" {
		rec.Category = d.Category.Name
	}
	if d.Brand != nil && d.Brand.Name != "" {
		rec.Brand = d.Brand.Name
	}

	if d.ImageURL != "" {
		rec.Images = append(rec.Images, d.ImageURL)
	}
	for _, img := range d.Images {
		if img != "" && img != d.ImageURL {
			rec.Images = append(rec.Images, img)
		}
	}
	return rec
}
