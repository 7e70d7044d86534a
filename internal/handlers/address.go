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
)

type AddressHandler struct {
	DB *gorm.DB
}

type addressRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	IsDefault bool   `json:"is_default"`
}

func (r *addressRequest) validate() error {
	if r.FirstName == "" || r.Street == "" || r.City == "" || r.Country == "" {
		return errors.New("first_name, street, city and country are required")
	}
	return nil
}

func (h *AddressHandler) Add(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "address_add")

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		l.Warn("address_add_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	addr := models.Address{
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
		Phone:     req.Phone,
		IsDefault: req.IsDefault,
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := clearDefaults(tx, user.ID); err != nil {
				return err
			}
		}
		return tx.Create(&addr).Error
	})
	if txErr != nil {
		l.Error("address_add_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("address_add_success", "address_id", addr.ID)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "address": addr})
}

func (h *AddressHandler) List(c echo.Context) error {
	user := mwauth.UserFrom(c)

	var addrs []models.Address
	if err := h.DB.Where("user_id = ?", user.ID).Order("is_default DESC, id ASC").Find(&addrs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "addresses": addrs})
}

func (h *AddressHandler) Update(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "address_update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var addr models.Address
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "address not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	addr.FirstName = req.FirstName
	addr.LastName = req.LastName
	addr.Street = req.Street
	addr.City = req.City
	addr.State = req.State
	addr.Zip = req.Zip
	addr.Country = req.Country
	addr.Phone = req.Phone

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault && !addr.IsDefault {
			if err := clearDefaults(tx, user.ID); err != nil {
				return err
			}
			addr.IsDefault = true
		}
		return tx.Save(&addr).Error
	})
	if txErr != nil {
		l.Error("address_update_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "address": addr})
}

func (h *AddressHandler) Delete(c echo.Context) error {
	user := mwauth.UserFrom(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Address{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "address not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deleted": id})
}

// SetDefault marks one address as the checkout default, clearing every
// other default the user has in the same transaction.
func (h *AddressHandler) SetDefault(c echo.Context) error {
	user := mwauth.UserFrom(c)
	l := logging.FromContext(c.Request().Context()).With("handler", "address_set_default")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var addr models.Address
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, user.ID).First(&addr).Error; err != nil {
			return err
		}
		if err := clearDefaults(tx, user.ID); err != nil {
			return err
		}
		addr.IsDefault = true
		return tx.Save(&addr).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "address not found")
		}
		l.Error("address_set_default_failed", "status", 500, "reason", "db_error", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "address": addr})
}

func clearDefaults(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default", userID).
		Update("is_default", false).Error
}
