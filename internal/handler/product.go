package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/ecommerce-backend/internal/auth"
	"github.com/iliyamo/ecommerce-backend/internal/middleware"
	"github.com/iliyamo/ecommerce-backend/internal/model"
	"github.com/iliyamo/ecommerce-backend/internal/repository"
	"github.com/iliyamo/ecommerce-backend/internal/validation"
)

// ProductStore is the persistence the catalog endpoints need.
// *repository.ProductRepo satisfies it.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context, offset, limit int) ([]*model.Product, int, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
}

// ProductHandler serves the catalog.  Reads are public; writes need a
// session and pass the ownership check.  Every successful write drops
// the cached read responses under CachePrefix.
type ProductHandler struct {
	Products    ProductStore
	Redis       *redis.Client
	CachePrefix string
	Log         logrus.FieldLogger
}

func NewProductHandler(products ProductStore, rdb *redis.Client, cachePrefix string, log logrus.FieldLogger) *ProductHandler {
	if products == nil {
		panic("nil product store passed to NewProductHandler")
	}
	return &ProductHandler{Products: products, Redis: rdb, CachePrefix: cachePrefix, Log: log}
}

type productPage struct {
	Items []*model.Product `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int              `json:"total"`
}

// ListProducts handles GET /v1/products?page=&size=
func (h *ProductHandler) ListProducts(c echo.Context) error {
	page, size, ok := pageParams(c)
	if !ok || page < 1 || size < 1 || size > maxPageSize {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid page or size"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, total, err := h.Products.List(ctx, (page-1)*size, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, productPage{Items: items, Page: page, Size: size, Total: total})
}

// GetProduct handles GET /v1/products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, ok := parseProductID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "product not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// CreateProduct handles POST /v1/products.  The caller becomes the owner.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product", "fields": validation.Fields(err)})
	}

	p := &model.Product{
		OwnerID:     who.ID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	}
	if err := h.Products.Create(c.Request().Context(), p); err != nil {
		return err
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, p)
}

// UpdateProduct handles PUT /v1/products/:id.  A missing product is 404
// before ownership is considered.
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	p, who, err := h.loadForWrite(c)
	if p == nil {
		return err
	}
	if !auth.CanMutate(who, p.OwnerID) {
		return forbidden(c)
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product", "fields": validation.Fields(err)})
	}

	p.Name, p.Description, p.PriceCents, p.Stock = req.Name, req.Description, req.PriceCents, req.Stock
	if err := h.Products.Update(c.Request().Context(), p); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "product not found"})
		}
		return err
	}
	h.purge(c)
	updated, err := h.Products.GetByID(c.Request().Context(), p.ID)
	if err != nil {
		updated = p
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	p, who, err := h.loadForWrite(c)
	if p == nil {
		return err
	}
	if !auth.CanMutate(who, p.OwnerID) {
		return forbidden(c)
	}
	if err := h.Products.Delete(c.Request().Context(), p.ID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "product not found"})
		}
		return err
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// loadForWrite resolves the caller and the addressed product.  When the
// product is nil the returned error is the response to hand back.
func (h *ProductHandler) loadForWrite(c echo.Context) (*model.Product, auth.Principal, error) {
	who, err := caller(c)
	if err != nil {
		return nil, who, err
	}
	id, ok := parseProductID(c)
	if !ok {
		return nil, who, c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, who, c.JSON(http.StatusNotFound, map[string]string{"error": "product not found"})
		}
		return nil, who, err
	}
	return p, who, nil
}

func (h *ProductHandler) purge(c echo.Context) {
	if err := middleware.PurgeCache(c.Request().Context(), h.Redis, h.CachePrefix); err != nil && h.Log != nil {
		h.Log.WithError(err).Warn("product cache purge failed")
	}
}
