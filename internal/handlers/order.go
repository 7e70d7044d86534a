package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/httperr"
	"github.com/shahid0mer/shopease/internal/logging"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
	"github.com/shahid0mer/shopease/internal/mykafka"
	"github.com/shahid0mer/shopease/internal/pricing"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type checkoutItem struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

// maxLineQuantity bounds a single checkout line. It also keeps the paise
// arithmetic in pricing.Quote well clear of int64 overflow.
const maxLineQuantity = 10000

// checkoutLines resolves the items being bought into priced lines, reading
// the user's cart when fromCart is set. Prices always come from the catalog,
// never from the client.
func checkoutLines(db *gorm.DB, userID uint, items []checkoutItem, fromCart bool) ([]pricing.Line, error) {
	if fromCart {
		var cartItems []models.CartItem
		if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&cartItems).Error; err != nil {
			return nil, err
		}
		items = items[:0]
		for _, it := range cartItems {
			items = append(items, checkoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to order", httperr.ErrValidation)
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			return nil, fmt.Errorf("%w: product_id is required", httperr.ErrValidation)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", httperr.ErrValidation)
		}
		if it.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity must not exceed %d", httperr.ErrValidation, maxLineQuantity)
		}
		var p models.Product
		if err := db.First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", httperr.ErrNotFound, it.ProductID)
			}
			return nil, err
		}
		lines = append(lines, pricing.Line{Product: &p, Quantity: it.Quantity})
	}
	return lines, nil
}

func ownedAddress(db *gorm.DB, userID, addressID uint) error {
	if addressID == 0 {
		return fmt.Errorf("%w: address_id is required", httperr.ErrValidation)
	}
	var addr models.Address
	if err := db.Where("id = ? AND user_id = ?", addressID, userID).First(&addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: address %d", httperr.ErrNotFound, addressID)
		}
		return err
	}
	return nil
}

func orderItemsFromLines(lines []pricing.Line) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			ProductID: l.Product.ID,
			SellerID:  l.Product.SellerID,
			Quantity:  l.Quantity,
			UnitPrice: pricing.Effective(l.Product),
		})
	}
	return items
}

// PlaceCOD creates a cash-on-delivery order: priced server-side, status
// Pending, unpaid, cart cleared in the same transaction when ordering the
// whole cart.
func (h *OrderHandler) PlaceCOD(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "order_cod")

	var req struct {
		Items     []checkoutItem `json:"items"`
		AddressID uint           `json:"address_id"`
		FromCart  bool           `json:"from_cart"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		lines, err := checkoutLines(tx, user.ID, req.Items, req.FromCart)
		if err != nil {
			return err
		}
		if err := ownedAddress(tx, user.ID, req.AddressID); err != nil {
			return err
		}

		_, _, total := pricing.Quote(lines)

		order = models.Order{
			UserID:      user.ID,
			AddressID:   req.AddressID,
			PaymentType: models.PaymentCOD,
			Amount:      total,
			Status:      models.StatusPending,
			IsPaid:      false,
			Items:       orderItemsFromLines(lines),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if req.FromCart {
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if status := httperr.Status(txErr); status != http.StatusInternalServerError {
			l.Warn("order_cod_failed", "status", status, "error", txErr)
			return txErr
		}
		l.Error("order_cod_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "order_events", user.ID, map[string]any{
		"type":    "order_created",
		"userID":  user.ID,
		"orderID": order.ID,
		"payment": models.PaymentCOD,
		"amount":  order.Amount,
	})

	l.Info("order_cod_success", "order_id", order.ID, "amount", order.Amount)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "order": order})
}

func (h *OrderHandler) ListUser(c echo.Context) error {
	user := mwauth.UserFrom(c)

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}

// ListSeller returns orders containing at least one of the seller's items.
func (h *OrderHandler) ListSeller(c echo.Context) error {
	user := mwauth.UserFrom(c)

	var orders []models.Order
	q := h.DB.Preload("Items").
		Where("id IN (?)", h.DB.Model(&models.OrderItem{}).
			Select("order_id").Where("seller_id = ?", user.ID)).
		Order("created_at DESC")
	if user.Role == models.RoleAdmin {
		q = h.DB.Preload("Items").Order("created_at DESC")
	}
	if err := q.Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}

// UpdateStatus advances the order along the status machine. Invalid
// transitions are rejected, terminal states never move.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "order_update_status")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if user.Role != models.RoleAdmin {
		var n int64
		if err := h.DB.Model(&models.OrderItem{}).
			Where("order_id = ? AND seller_id = ?", order.ID, user.ID).Count(&n).Error; err != nil {
			l.Error("order_update_status_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if n == 0 {
			return echo.NewHTTPError(http.StatusForbidden, "not your order")
		}
	}

	if !models.CanTransition(order.Status, req.Status) {
		l.Warn("order_update_status_failed", "status", 400, "from", order.Status, "to", req.Status)
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("cannot move order from %q to %q", order.Status, req.Status))
	}

	updates := map[string]any{"status": req.Status}
	if req.Status == models.StatusCancelled {
		now := time.Now()
		updates["cancelled_at"] = &now
	}
	if err := h.DB.Model(&order).Updates(updates).Error; err != nil {
		l.Error("order_update_status_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "order_events", order.UserID, map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  req.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

// Cancel is the user-initiated transition to Cancelled. Delivered and
// already-cancelled orders are rejected.
func (h *OrderHandler) Cancel(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "order_cancel")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if order.Status.Terminal() {
		l.Warn("order_cancel_failed", "status", 400, "reason", "terminal state", "order_status", order.Status)
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("order in state %q cannot be cancelled", order.Status))
	}

	now := time.Now()
	if err := h.DB.Model(&order).Updates(map[string]any{
		"status":       models.StatusCancelled,
		"cancelled_at": &now,
	}).Error; err != nil {
		l.Error("order_cancel_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	order.Status = models.StatusCancelled
	order.CancelledAt = &now

	publishEvent(c, h.Producer, "order_events", user.ID, map[string]any{
		"type":    "order_cancelled",
		"userID":  user.ID,
		"orderID": order.ID,
	})

	l.Info("order_cancel_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}
