package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/hash"
	"github.com/shahid0mer/shopease/internal/logging"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
	"github.com/shahid0mer/shopease/internal/mykafka"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func (h *AuthHandler) setSessionCookie(c echo.Context, user *models.User) error {
	token, err := mwauth.SignSessionToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return err
	}
	c.SetCookie(CreateCookie(mwauth.CookieName, token, "/", time.Now().Add(mwauth.SessionTTL)))
	return nil
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		l.Warn("register_failed", "status", 400, "reason", "missing fields")
		return echo.NewHTTPError(http.StatusBadRequest, "name, email and password are required")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	} else {
		l.Warn("register_failed", "status", 409, "reason", "user_exists")
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.setSessionCookie(c, &user); err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "user_events", user.ID, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	if err := h.setSessionCookie(c, &user); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "user_events", user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(DeleteCookie(mwauth.CookieName, "/"))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}

func (h *AuthHandler) IsAuth(c echo.Context) error {
	user := mwauth.UserFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	user := mwauth.UserFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// BecomeSeller is a one-way self-service role upgrade. Admin is never
// reachable this way.
func (h *AuthHandler) BecomeSeller(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_become_seller")

	user := mwauth.UserFrom(c)
	if user.Role != models.RoleUser {
		l.Warn("become_seller_failed", "status", 409, "reason", "not a plain user", "role", user.Role)
		return echo.NewHTTPError(http.StatusConflict, "only a user account can become a seller")
	}

	if err := h.DB.Model(user).Update("role", models.RoleSeller).Error; err != nil {
		l.Error("become_seller_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	user.Role = models.RoleSeller

	// Role is baked into the session token, so reissue it.
	if err := h.setSessionCookie(c, user); err != nil {
		l.Error("become_seller_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publishEvent(c, h.Producer, "user_events", user.ID, map[string]any{
		"type":   "user_became_seller",
		"userID": user.ID,
	})

	l.Info("become_seller_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// ForgotPassword issues a 15-minute reset token. Mail delivery is out of
// scope, so the token is returned in the response body.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("forgot_password_failed", "status", 404, "reason", "unknown email")
			return echo.NewHTTPError(http.StatusNotFound, "no account for that email")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	token, err := mwauth.SignResetToken(user.ID, h.JWTSecret)
	if err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("forgot_password_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "reset_token": token})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_reset_password")

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and password are required")
	}

	userID, err := mwauth.ParseResetToken(req.Token, h.JWTSecret)
	if err != nil {
		l.Warn("reset_password_failed", "status", 401, "reason", "invalid reset token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired reset token")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("reset_password_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	res := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", pwHash)
	if res.Error != nil {
		l.Error("reset_password_failed", "status", 500, "reason", "db_error", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		l.Warn("reset_password_failed", "status", 401, "reason", "user no longer exists")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired reset token")
	}

	l.Info("reset_password_success", "user_id", userID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password updated"})
}
