package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/config"
	"github.com/shahid0mer/shopease/internal/handlers"
	"github.com/shahid0mer/shopease/internal/hash"
	"github.com/shahid0mer/shopease/internal/httperr"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
	"github.com/shahid0mer/shopease/internal/razorpay"
	httpserver "github.com/shahid0mer/shopease/internal/transport/http"
)

const testJWTSecret = "test-jwt-secret"

type testEnv struct {
	T       *testing.T
	E       *echo.Echo
	DB      *gorm.DB
	Gateway *razorpay.Client

	// gwHandler serves as the fake Razorpay API for the current test.
	gwHandler http.HandlerFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	env := &testEnv{T: t, DB: db}

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.gwHandler == nil {
			t.Errorf("unexpected gateway call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		env.gwHandler(w, r)
	}))
	t.Cleanup(gwSrv.Close)

	env.Gateway = &razorpay.Client{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   gwSrv.URL,
		HTTP:      gwSrv.Client(),
	}

	e := echo.New()
	e.HTTPErrorHandler = httperr.Handler

	secret := []byte(testJWTSecret)
	deps := httpserver.Deps{
		DB:             db,
		JWTSecret:      secret,
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: secret},
		AddressHandler: &handlers.AddressHandler{DB: db},
		ProductHandler: &handlers.ProductHandler{DB: db},
		CartHandler:    &handlers.CartHandler{DB: db},
		OrderHandler:   &handlers.OrderHandler{DB: db},
		PaymentHandler: &handlers.PaymentHandler{DB: db, Gateway: env.Gateway},
		SearchHandler:  &handlers.SearchHandler{},
	}
	httpserver.Register(e, &deps)
	env.E = e

	return env
}

// createUser inserts a user directly and returns it with a valid session
// cookie.
func (env *testEnv) createUser(email string, role models.Role) (*models.User, *http.Cookie) {
	env.T.Helper()

	pwHash, err := hash.HashPassword("password123")
	require.NoError(env.T, err)

	user := models.User{Name: "Test User", Email: email, PasswordHash: pwHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)

	token, err := mwauth.SignSessionToken(user.ID, user.Role, []byte(testJWTSecret))
	require.NoError(env.T, err)

	return &user, &http.Cookie{Name: mwauth.CookieName, Value: token, Path: "/"}
}

func (env *testEnv) createProduct(sellerID uint, price, offer int64) *models.Product {
	env.T.Helper()
	p := models.Product{
		SellerID: sellerID,
		Name:     "Widget",
		Price:    price, OfferPrice: offer,
		InStock: true,
	}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return &p
}

func (env *testEnv) createAddress(userID uint) *models.Address {
	env.T.Helper()
	a := models.Address{
		UserID:    userID,
		FirstName: "Test", Street: "1 Main St", City: "Mumbai", Country: "IN",
	}
	require.NoError(env.T, env.DB.Create(&a).Error)
	return &a
}

// do runs one request through the full router, auth middleware included.
func (env *testEnv) do(method, path string, body any, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.T, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}
