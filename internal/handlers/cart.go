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
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// CartLine is a cart row populated with the full product document so the
// client can recompute totals; totals are never persisted server-side.
type CartLine struct {
	models.CartItem
	Product models.Product `json:"product"`
}

func populatedCart(db *gorm.DB, userID uint) ([]CartLine, error) {
	var items []models.CartItem
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := db.First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// product removed from catalog, drop the stale line
				continue
			}
			return nil, err
		}
		lines = append(lines, CartLine{CartItem: it, Product: p})
	}
	return lines, nil
}

func (h *CartHandler) cartResponse(c echo.Context, userID uint) error {
	lines, err := populatedCart(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": lines})
}

func (h *CartHandler) Get(c echo.Context) error {
	user := mwauth.UserFrom(c)
	return h.cartResponse(c, user.ID)
}

// Add merges by product: an existing line has its quantity incremented, a
// new product gets its own line.
func (h *CartHandler) Add(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "cart_add")

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", user.ID, req.ProductID).First(&item)
	switch {
	case tx.Error == nil:
		item.Quantity += req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: user.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		if err := h.DB.Create(&item).Error; err != nil {
			l.Error("cart_add_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "cart_events", user.ID, map[string]any{
		"type":      "cart_item_added",
		"userID":    user.ID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	return h.cartResponse(c, user.ID)
}

// UpdateQuantity replaces the quantity of one line.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "cart_update")

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", itemID, user.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	item.Quantity = req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		l.Error("cart_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "cart_events", user.ID, map[string]any{
		"type":     "cart_item_updated",
		"userID":   user.ID,
		"itemID":   item.ID,
		"quantity": item.Quantity,
	})

	return h.cartResponse(c, user.ID)
}

func (h *CartHandler) Remove(c echo.Context) error {
	user := mwauth.UserFrom(c)

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	res := h.DB.Where("id = ? AND user_id = ?", itemID, user.ID).Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	publishEvent(c, h.Producer, "cart_events", user.ID, map[string]any{
		"type":   "cart_item_removed",
		"userID": user.ID,
		"itemID": itemID,
	})

	return h.cartResponse(c, user.ID)
}
