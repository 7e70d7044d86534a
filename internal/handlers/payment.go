package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/httperr"
	"github.com/shahid0mer/shopease/internal/logging"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
	"github.com/shahid0mer/shopease/internal/mykafka"
	"github.com/shahid0mer/shopease/internal/pricing"
	"github.com/shahid0mer/shopease/internal/razorpay"
)

// IdempotencyHeader must accompany every verification callback; a replayed
// key returns the stored outcome without touching the gateway or database.
const IdempotencyHeader = "X-Idempotency-Key"

const currency = "INR"

type PaymentHandler struct {
	DB       *gorm.DB
	Gateway  *razorpay.Client
	Producer *mykafka.Producer
}

// RazorKey exposes the gateway's public key id to the client. The key id is
// public by design; the secret never leaves the server.
func (h *PaymentHandler) RazorKey(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "key_id": h.Gateway.KeyID})
}

// orderDetails is the checkout context the client echoes back at
// verification time so the server can reprice the order from scratch.
type orderDetails struct {
	Items     []checkoutItem `json:"items"`
	AddressID uint           `json:"address_id"`
	FromCart  bool           `json:"from_cart"`
}

func (h *PaymentHandler) createIntent(c echo.Context, details orderDetails) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "payment_create")

	lines, err := checkoutLines(h.DB, user.ID, details.Items, details.FromCart)
	if err != nil {
		if httperr.Status(err) != http.StatusInternalServerError {
			l.Warn("payment_create_failed", "status", httperr.Status(err), "error", err)
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := ownedAddress(h.DB, user.ID, details.AddressID); err != nil {
		if httperr.Status(err) != http.StatusInternalServerError {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// The amount sent to the gateway is always the server-computed total.
	_, _, total := pricing.Quote(lines)

	gwOrder, err := h.Gateway.CreateOrder(c.Request().Context(), total, currency, uuid.NewString())
	if err != nil {
		l.Error("payment_create_failed", "status", 502, "reason", "gateway error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}

	l.Info("payment_create_success", "gateway_order_id", gwOrder.ID, "amount", total)
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"order_id": gwOrder.ID,
		"amount":   gwOrder.Amount,
		"currency": gwOrder.Currency,
		"key_id":   h.Gateway.KeyID,
	})
}

// CreateIntent opens a gateway payment intent for a single product. No
// local order exists until verification succeeds.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
		AddressID uint `json:"address_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	return h.createIntent(c, orderDetails{
		Items:     []checkoutItem{{ProductID: req.ProductID, Quantity: req.Quantity}},
		AddressID: req.AddressID,
	})
}

// CreateCartIntent is the whole-cart equivalent of CreateIntent.
func (h *PaymentHandler) CreateCartIntent(c echo.Context) error {
	var req struct {
		AddressID uint `json:"address_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return h.createIntent(c, orderDetails{AddressID: req.AddressID, FromCart: true})
}

// Verify is the all-or-nothing commit point of online checkout. Three
// independent checks run in fixed order, each a hard stop with no side
// effects: callback signature, live capture status, repriced amount. Only
// then does one transaction persist the Payment, create the Order,
// back-fill the payment's order reference and clear the cart.
func (h *PaymentHandler) Verify(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "payment_verify")

	idemKey := c.Request().Header.Get(IdempotencyHeader)
	if idemKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, IdempotencyHeader+" header is required")
	}

	var req struct {
		RazorpayOrderID   string       `json:"razorpay_order_id"`
		RazorpayPaymentID string       `json:"razorpay_payment_id"`
		RazorpaySignature string       `json:"razorpay_signature"`
		OrderDetails      orderDetails `json:"orderDetails"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return echo.NewHTTPError(http.StatusBadRequest,
			"razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}

	// Replay of a key we have already committed: return the stored outcome.
	var prior models.IdempotencyKey
	err := h.DB.Where("key = ? AND user_id = ?", idemKey, user.ID).First(&prior).Error
	if err == nil {
		l.Info("payment_verify_replay", "order_id", prior.OrderID)
		return c.JSON(http.StatusOK, echo.Map{"success": true, "order_id": prior.OrderID, "replayed": true})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Check 1: callback signature.
	if !h.Gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		l.Warn("payment_verify_failed", "status", 400, "reason", "signature mismatch",
			"gateway_order_id", req.RazorpayOrderID, "fraud_signal", true)
		return echo.NewHTTPError(http.StatusBadRequest, "signature verification failed")
	}

	// Check 2: live capture status from the gateway.
	gwPayment, err := h.Gateway.FetchPayment(c.Request().Context(), req.RazorpayPaymentID)
	if err != nil {
		l.Error("payment_verify_failed", "status", 502, "reason", "gateway error", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}
	if gwPayment.Status != "captured" {
		l.Warn("payment_verify_failed", "status", 400, "reason", "payment not captured",
			"gateway_status", gwPayment.Status)
		return echo.NewHTTPError(http.StatusBadRequest, "payment not captured")
	}
	if gwPayment.OrderID != req.RazorpayOrderID {
		l.Warn("payment_verify_failed", "status", 400, "reason", "order id mismatch", "fraud_signal", true)
		return echo.NewHTTPError(http.StatusBadRequest, "payment does not belong to this order")
	}

	// Check 3: reprice from scratch and compare with the captured amount.
	lines, err := checkoutLines(h.DB, user.ID, req.OrderDetails.Items, req.OrderDetails.FromCart)
	if err != nil {
		if httperr.Status(err) != http.StatusInternalServerError {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := ownedAddress(h.DB, user.ID, req.OrderDetails.AddressID); err != nil {
		if httperr.Status(err) != http.StatusInternalServerError {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	_, _, total := pricing.Quote(lines)
	if total != gwPayment.Amount {
		l.Warn("payment_verify_failed", "status", 400, "reason", "amount mismatch",
			"expected", total, "captured", gwPayment.Amount, "fraud_signal", true)
		return echo.NewHTTPError(http.StatusBadRequest, "amount verification failed")
	}

	// All checks passed: durable commit, then cart clear, all in one
	// transaction. The unique indexes on the payment's gateway ids reject a
	// concurrent duplicate that slipped past the idempotency lookup.
	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		payment := models.Payment{
			UserID:         user.ID,
			GatewayOrderID: req.RazorpayOrderID,
			TransactionID:  req.RazorpayPaymentID,
			Amount:         gwPayment.Amount,
			Status:         gwPayment.Status,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("%w: payment already processed", httperr.ErrConflict)
		}

		order = models.Order{
			UserID:      user.ID,
			AddressID:   req.OrderDetails.AddressID,
			PaymentType: models.PaymentOnline,
			Amount:      gwPayment.Amount,
			Status:      models.StatusPlaced,
			IsPaid:      true,
			PaymentID:   &payment.ID,
			Items:       orderItemsFromLines(lines),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Back-fill the payment's order reference, set exactly once.
		if err := tx.Model(&payment).Update("order_id", order.ID).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.IdempotencyKey{
			Key:     idemKey,
			UserID:  user.ID,
			OrderID: order.ID,
		}).Error; err != nil {
			return err
		}

		if req.OrderDetails.FromCart {
			if err := tx.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, httperr.ErrConflict) {
			l.Warn("payment_verify_failed", "status", 409, "reason", "duplicate transaction",
				"transaction_id", req.RazorpayPaymentID)
			return echo.NewHTTPError(http.StatusConflict, "payment already processed")
		}
		l.Error("payment_verify_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "order_events", user.ID, map[string]any{
		"type":    "order_paid",
		"userID":  user.ID,
		"orderID": order.ID,
		"amount":  order.Amount,
	})

	l.Info("payment_verify_success", "order_id", order.ID, "amount", order.Amount)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order_id": order.ID, "order": order})
}
