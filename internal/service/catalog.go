package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogService struct {
	Repo *repo.GormRepo
	// Index is optional; without it search runs against the database.
	Index      search.Index
	Events     notify.Publisher
	Dispatcher *notify.Dispatcher
	Storage    media.Storage
	Images     *media.Imgproxy
}

type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
}

// ProductPatch carries only the fields the caller wants to change.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
}

type ProductEvent struct {
	Type      string    `json:"type"`
	ProductID string    `json:"productID"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	At        time.Time `json:"at"`
}

func validateProduct(name string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be > 0", ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, category string, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, strings.TrimSpace(category), offset, limit)
}

// SearchProducts asks the search index for matching ids and loads them in rank
// order. If the index is missing or fails, the database match is used instead.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: q required", ErrValidation)
	}
	if s.Index == nil {
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}

	total, ids, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to database", "error", err)
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}
	if len(ids) == 0 {
		return total, []models.Product{}, nil
	}

	byID, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	items := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, p)
		}
	}
	return total, items, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Stock); err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
	}
	p.Slug = slugify(p.Name, p.ID)

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: product already exists", ErrConflict)
		}
		return nil, err
	}
	s.changed("product_created", *p)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Price != nil {
		p.Price = patch.Price.Round(2)
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if err := validateProduct(p.Name, p.Price, p.Stock); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	s.changed("product_updated", *p)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return err
	}
	s.changed("product_deleted", *p)
	if p.ImageKey != "" {
		s.removeObject(p.ImageKey)
	}
	return nil
}

// UploadImage stores the image under products/<id>/ and points the product at it.
func (s *CatalogService) UploadImage(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader, size int64) (*models.Product, error) {
	if s.Storage == nil {
		return nil, fmt.Errorf("%w: object storage", ErrUnavailable)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: only image uploads are accepted", ErrValidation)
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%s/%s%s", id, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if err := s.Storage.Put(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}
	if err := s.Repo.SetProductImage(ctx, id, key); err != nil {
		return nil, err
	}

	old := p.ImageKey
	p.ImageKey = key
	if old != "" {
		s.removeObject(old)
	}
	s.changed("product_updated", *p)
	return p, nil
}

// ImageURL returns the public url for the product image, resized through
// imgproxy when one is configured.
func (s *CatalogService) ImageURL(p models.Product, width, height int) string {
	if p.ImageKey == "" || s.Storage == nil {
		return ""
	}
	return s.Images.Resize(s.Storage.URL(p.ImageKey), width, height)
}

func (s *CatalogService) changed(typ string, p models.Product) {
	if s.Dispatcher == nil {
		return
	}
	if s.Events != nil {
		ev := ProductEvent{
			Type:      typ,
			ProductID: p.ID.String(),
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price.StringFixed(2),
			Stock:     p.Stock,
			At:        time.Now().UTC(),
		}
		s.Dispatcher.Enqueue(notify.Job{Name: "catalog.event." + typ, Run: func(ctx context.Context) error {
			return s.Events.Publish(ctx, events.TopicProductEvents, ev.ProductID, ev)
		}})
	}
	if s.Index != nil {
		if typ == "product_deleted" {
			s.Dispatcher.Enqueue(notify.Job{Name: "catalog.unindex", Run: func(ctx context.Context) error {
				return s.Index.DeleteProduct(ctx, p.ID)
			}})
			return
		}
		s.Dispatcher.Enqueue(notify.Job{Name: "catalog.index", Run: func(ctx context.Context) error {
			return s.Index.IndexProduct(ctx, p)
		}})
	}
}

func (s *CatalogService) removeObject(key string) {
	if s.Dispatcher == nil || s.Storage == nil {
		return
	}
	s.Dispatcher.Enqueue(notify.Job{Name: "catalog.remove_image", Run: func(ctx context.Context) error {
		return s.Storage.Remove(ctx, key)
	}})
}

func slugify(name string, id uuid.UUID) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "product"
	}
	return slug + "-" + id.String()[:8]
}
