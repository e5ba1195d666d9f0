package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	types  []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if ev, ok := event.(ProductEvent); ok {
		p.types = append(p.types, ev.Type)
	}
	return nil
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexProduct(_ context.Context, p models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func (m *memStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = b
	return nil
}

func (m *memStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, key)
	return nil
}

func (m *memStorage) URL(key string) string { return "http://minio:9000/storefront/" + key }

func newCatalog(t *testing.T) (*CatalogService, *notify.Dispatcher) {
	t.Helper()
	r, _ := newRepo(t)
	d := notify.NewDispatcher(1, 32, time.Second, nil)
	d.Start()
	return &CatalogService{Repo: r, Dispatcher: d}, d
}

func drain(t *testing.T, d *notify.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func ptr[T any](v T) *T { return &v }

func TestCatalog_ProductLifecycle(t *testing.T) {
	t.Parallel()

	svc, d := newCatalog(t)
	pub := &recordingPublisher{}
	idx := &fakeIndex{}
	svc.Events, svc.Index = pub, idx
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Linen Shirt!", Category: "tops", Price: decimal.RequireFromString("25.005"), Stock: 4})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Slug, "linen-shirt-"), p.Slug)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("25.01")), p.Price.String())

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductPatch{Stock: ptr(9), Description: ptr(" soft ")})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)
	assert.Equal(t, "soft", updated.Description)
	assert.Equal(t, "Linen Shirt!", updated.Name)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductPatch{Price: ptr(decimal.Zero)})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), ErrNotFound)

	drain(t, d)
	assert.Equal(t, []string{"product_created", "product_updated", "product_deleted"}, pub.types)
	assert.Equal(t, events.TopicProductEvents, pub.topics[0])
	assert.Equal(t, []uuid.UUID{p.ID, p.ID}, idx.indexed)
	assert.Equal(t, []uuid.UUID{p.ID}, idx.deleted)
}

func TestCatalog_CreateProductValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)

	tests := []struct {
		name string
		in   ProductInput
	}{
		{name: "blank name", in: ProductInput{Name: " ", Price: decimal.NewFromInt(1)}},
		{name: "zero price", in: ProductInput{Name: "x", Price: decimal.Zero}},
		{name: "negative price", in: ProductInput{Name: "x", Price: decimal.NewFromInt(-1)}},
		{name: "negative stock", in: ProductInput{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCatalog_SearchUsesIndexOrder(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)
	ctx := context.Background()
	a := seedProduct(t, svc.Repo, "Alpha", "10", 1)
	b := seedProduct(t, svc.Repo, "Beta", "10", 1)

	svc.Index = &fakeIndex{hits: []uuid.UUID{b.ID, uuid.New(), a.ID}}
	total, items, err := svc.SearchProducts(ctx, "anything", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}

func TestCatalog_SearchFallsBackToDatabase(t *testing.T) {
	t.Parallel()

	svc, _ := newCatalog(t)
	ctx := context.Background()
	seedProduct(t, svc.Repo, "Blue Shirt", "10", 1)
	seedProduct(t, svc.Repo, "Red Cap", "10", 1)

	_, _, err := svc.SearchProducts(ctx, " ", 0, 10)
	require.ErrorIs(t, err, ErrValidation)

	total, items, err := svc.SearchProducts(ctx, "SHIRT", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Blue Shirt", items[0].Name)

	svc.Index = &fakeIndex{err: errors.New("cluster down")}
	total, items, err = svc.SearchProducts(ctx, "cap", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Red Cap", items[0].Name)
}

func TestCatalog_UploadImage(t *testing.T) {
	t.Parallel()

	svc, d := newCatalog(t)
	ctx := context.Background()
	p := seedProduct(t, svc.Repo, "Shirt", "10", 1)

	_, err := svc.UploadImage(ctx, p.ID, "a.png", "image/png", bytes.NewReader([]byte("x")), 1)
	require.ErrorIs(t, err, ErrUnavailable)

	store := &memStorage{}
	svc.Storage = store

	_, err = svc.UploadImage(ctx, p.ID, "a.txt", "text/plain", bytes.NewReader([]byte("x")), 1)
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.UploadImage(ctx, uuid.New(), "a.png", "image/png", bytes.NewReader([]byte("x")), 1)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := svc.UploadImage(ctx, p.ID, "Front.PNG", "image/png", bytes.NewReader([]byte("png")), 3)
	require.NoError(t, err)
	assert.Regexp(t, `^products/`+p.ID.String()+`/[0-9a-f-]{36}\.png$`, first.ImageKey)
	assert.Equal(t, []byte("png"), store.objects[first.ImageKey])

	second, err := svc.UploadImage(ctx, p.ID, "back.jpg", "image/jpeg", bytes.NewReader([]byte("jpg")), 3)
	require.NoError(t, err)

	stored, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ImageKey, stored.ImageKey)

	assert.Equal(t, "http://minio:9000/storefront/"+second.ImageKey, svc.ImageURL(*stored, 400, 400))
	proxy, err := media.NewImgproxy("http://img", "", "")
	require.NoError(t, err)
	svc.Images = proxy
	assert.True(t, strings.HasPrefix(svc.ImageURL(*stored, 400, 400), "http://img/insecure/rs:fit:400:400/"))
	assert.Empty(t, svc.ImageURL(models.Product{}, 1, 1))

	drain(t, d)
	assert.Equal(t, []string{first.ImageKey}, store.removed)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("12345678-0000-0000-0000-000000000000")
	assert.Equal(t, "blue-linen-shirt-12345678", slugify("  Blue  Linen -- Shirt ", id))
	assert.Equal(t, "product-12345678", slugify("!!!", id))
}
