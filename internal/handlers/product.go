package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/logging"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
	"github.com/shahid0mer/shopease/internal/mykafka"
	"github.com/shahid0mer/shopease/internal/pricing"
	"github.com/shahid0mer/shopease/internal/service/search"
	"github.com/shahid0mer/shopease/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Search   *search.Service
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	OfferPrice  int64  `json:"offer_price"`
	InStock     *bool  `json:"in_stock"`
}

func (r *productRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Price <= 0 {
		return errors.New("price must be a positive paise amount")
	}
	if r.OfferPrice < 0 {
		return errors.New("offer_price cannot be negative")
	}
	return nil
}

// Get returns one product; out-of-stock items stay reachable by id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

// List is the public storefront listing: in-stock only, paginated.
func (h *ProductHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{}).Where("in_stock")
	if cat := c.QueryParam("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// SellerList shows the seller their own catalog, out-of-stock included.
func (h *ProductHandler) SellerList(c echo.Context) error {
	user := mwauth.UserFrom(c)

	var items []models.Product
	if err := h.DB.Where("seller_id = ?", user.ID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}

func (h *ProductHandler) Create(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "product_create")

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		l.Warn("product_create_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	prod := models.Product{
		SellerID:    user.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		OfferPrice:  req.OfferPrice,
		InStock:     true,
	}
	if req.InStock != nil {
		prod.InStock = *req.InStock
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		l.Error("product_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Search.IndexProduct(c.Request().Context(), &prod); err != nil {
		l.Error("product_index_failed", "product_id", prod.ID, "error", err)
	}

	publishEvent(c, h.Producer, "product_events", user.ID, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"sellerID":  user.ID,
	})

	l.Info("product_create_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": prod})
}

func (h *ProductHandler) loadOwned(c echo.Context) (*models.Product, error) {
	user := mwauth.UserFrom(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if user.Role != models.RoleAdmin && prod.SellerID != user.ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not your product")
	}
	return &prod, nil
}

func (h *ProductHandler) Update(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product_update")

	prod, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Category = req.Category
	prod.Price = req.Price
	prod.OfferPrice = req.OfferPrice
	if req.InStock != nil {
		prod.InStock = *req.InStock
	}

	if err := h.DB.Save(prod).Error; err != nil {
		l.Error("product_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Search.IndexProduct(c.Request().Context(), prod); err != nil {
		l.Error("product_index_failed", "product_id", prod.ID, "error", err)
	}

	publishEvent(c, h.Producer, "product_events", prod.SellerID, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": prod})
}

// SetStock flips listing visibility without touching the rest of the doc.
func (h *ProductHandler) SetStock(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product_set_stock")

	prod, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	var req struct {
		InStock bool `json:"in_stock"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.DB.Model(prod).Update("in_stock", req.InStock).Error; err != nil {
		l.Error("product_set_stock_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	prod.InStock = req.InStock

	if err := h.Search.IndexProduct(c.Request().Context(), prod); err != nil {
		l.Error("product_index_failed", "product_id", prod.ID, "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": prod})
}

func (h *ProductHandler) Delete(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "product_delete")

	prod, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(&models.Product{}, prod.ID).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.Search.DeleteProduct(c.Request().Context(), prod.ID); err != nil {
		l.Error("product_unindex_failed", "product_id", prod.ID, "error", err)
	}

	publishEvent(c, h.Producer, "product_events", prod.SellerID, map[string]any{
		"type":      "product_deleted",
		"productID": prod.ID,
	})

	return c.NoContent(http.StatusNoContent)
}

// EffectivePrice mirrors what checkout will charge; exposed so clients can
// render totals the same way the server computes them.
func (h *ProductHandler) EffectivePrice(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"product_id":      prod.ID,
		"effective_price": pricing.Effective(&prod),
	})
}
