package event

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine/memory"
	"github.com/utafrali/catalogsearch/internal/service"
	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"
)

func newTestConsumer() (*Consumer, *service.SearchService) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewSearchService(memory.New(memory.WithLogger(logger)), logger)
	return NewConsumer(svc, logger), svc
}

func newEvent(t *testing.T, eventType, aggregateID string, data any) *pkgkafka.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: "product",
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        "product-service",
		Data:          raw,
	}
}

func search(t *testing.T, svc *service.SearchService, q string) *domain.SearchResult {
	t.Helper()
	res, err := svc.Search(context.Background(), &domain.SearchQuery{Query: q})
	require.NoError(t, err)
	return res
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		"ecommerce.product.created",
		"ecommerce.product.updated",
		"ecommerce.product.deleted",
	}, Topics())
}

func TestHandle_CreatedIndexesProduct(t *testing.T) {
	c, svc := newTestConsumer()

	ev := newEvent(t, EventProductCreated, "prod-1", map[string]any{
		"id":            "prod-1",
		"name":          "Vela Aromática Canela",
		"status":        "published",
		"base_price":    3490,
		"category_name": "Velas",
		"brand":         map[string]any{"id": "b1", "name": "ZenLife"},
		"image_url":     "https://img.example/canela.jpg",
		"images":        []string{"https://img.example/canela.jpg", "https://img.example/canela-2.jpg"},
		"stock":         2,
	})
	require.NoError(t, c.Handle(context.Background(), ev))

	res := search(t, svc, "canela")
	require.Equal(t, 1, res.TotalResults)
	p := res.Products[0]
	assert.InDelta(t, 34.90, p.Price, 1e-9)
	assert.Equal(t, "Velas", p.Category)
	assert.Equal(t, "ZenLife", p.Brand)
	assert.True(t, p.InStock)
	assert.Equal(t, []string{"https://img.example/canela.jpg", "https://img.example/canela-2.jpg"}, p.Images)
}

func TestHandle_AcceptsTopicNameAsEventType(t *testing.T) {
	c, svc := newTestConsumer()

	ev := newEvent(t, TopicProductCreated, "prod-2", map[string]any{"id": "prod-2", "name": "Incenso Mirra"})
	require.NoError(t, c.Handle(context.Background(), ev))
	assert.Equal(t, 1, search(t, svc, "mirra").TotalResults)
}

func TestHandle_UpdatedReplacesEntry(t *testing.T) {
	c, svc := newTestConsumer()
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductCreated, "p1", map[string]any{"id": "p1", "name": "Difusor Bambu", "price": 50.0})))
	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductUpdated, "p1", map[string]any{"id": "p1", "name": "Difusor Cerâmica", "price": 60.0})))

	assert.Equal(t, 0, search(t, svc, "bambu").TotalResults)
	res := search(t, svc, "cerâmica")
	require.Equal(t, 1, res.TotalResults)
	assert.Equal(t, 60.0, res.Products[0].Price)
}

func TestHandle_UnpublishedProductIsRemoved(t *testing.T) {
	c, svc := newTestConsumer()
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductCreated, "p1", map[string]any{"id": "p1", "name": "Vela Mel"})))
	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductUpdated, "p1", map[string]any{"id": "p1", "name": "Vela Mel", "status": "archived"})))
	assert.Equal(t, 0, search(t, svc, "vela").TotalResults)

	// A draft that was never indexed is not an error.
	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductCreated, "p2", map[string]any{"id": "p2", "name": "Rascunho", "status": "draft"})))
}

func TestHandle_Deleted(t *testing.T) {
	c, svc := newTestConsumer()
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductCreated, "p1", map[string]any{"id": "p1", "name": "Incenso Lavanda"})))
	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductDeleted, "p1", map[string]any{"id": "p1"})))
	assert.Equal(t, 0, search(t, svc, "lavanda").TotalResults)

	// Redelivery of the same deletion succeeds.
	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductDeleted, "p1", map[string]any{"id": "p1"})))
}

func TestHandle_DeletedFallsBackToAggregateID(t *testing.T) {
	c, svc := newTestConsumer()
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, newEvent(t, EventProductCreated, "p9", map[string]any{"name": "Sabonete Artesanal"})))
	require.Equal(t, 1, search(t, svc, "sabonete").TotalResults)

	ev := &pkgkafka.Event{EventID: uuid.NewString(), EventType: EventProductDeleted, AggregateID: "p9"}
	require.NoError(t, c.Handle(ctx, ev))
	assert.Equal(t, 0, search(t, svc, "sabonete").TotalResults)
}

func TestHandle_Errors(t *testing.T) {
	c, _ := newTestConsumer()
	ctx := context.Background()

	t.Run("malformed payload", func(t *testing.T) {
		ev := &pkgkafka.Event{EventID: "e1", EventType: EventProductCreated, Data: json.RawMessage(`{"id": 5}`)}
		assert.Error(t, c.Handle(ctx, ev))
	})

	t.Run("missing payload", func(t *testing.T) {
		ev := &pkgkafka.Event{EventID: "e2", EventType: EventProductUpdated}
		assert.Error(t, c.Handle(ctx, ev))
	})

	t.Run("missing id", func(t *testing.T) {
		ev := newEvent(t, EventProductCreated, "", map[string]any{"name": "Sem id"})
		assert.Error(t, c.Handle(ctx, ev))
	})

	t.Run("unknown type is ignored", func(t *testing.T) {
		ev := newEvent(t, "order.created", "o1", map[string]any{"id": "o1"})
		assert.NoError(t, c.Handle(ctx, ev))
	})
}

func TestProductEventData_Record(t *testing.T) {
	price := 12.5
	d := ProductEventData{
		ID:           "p1",
		Price:        &price,
		BasePrice:    ptrInt64(9999),
		Category:     &Ref{ID: "c1", Name: "Aromas"},
		CategoryName: "Ignored",
	}
	rec := d.Record()
	assert.Equal(t, 12.5, rec.Price)
	assert.Equal(t, "Aromas", rec.Category)
	assert.Empty(t, rec.Images)
}

func ptrInt64(v int64) *int64 { return &v }
