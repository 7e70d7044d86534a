package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/models"
)

var testSecret = []byte("test-secret")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func invoke(t *testing.T, db *gorm.DB, cookie *http.Cookie, roles ...models.Role) (int, *models.User) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var attached *models.User
	h := RequireRoles(db, testSecret, roles...)(func(c echo.Context) error {
		attached = UserFrom(c)
		return c.NoContent(http.StatusOK)
	})

	err := h(c)
	if err == nil {
		return rec.Code, attached
	}
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	return he.Code, attached
}

func TestRequireRoles_MissingCookie(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	code, user := invoke(t, db, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Nil(t, user, "no user attached on failure")
}

func TestRequireRoles_TamperedToken(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	u := models.User{Name: "n", Email: "u@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&u).Error)

	token, err := SignSessionToken(u.ID, u.Role, testSecret)
	require.NoError(t, err)
	tampered := token[:len(token)-2] + "xx"

	code, user := invoke(t, db, &http.Cookie{Name: CookieName, Value: tampered})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Nil(t, user)
}

func TestRequireRoles_ExpiredToken(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	u := models.User{Name: "n", Email: "u@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&u).Error)

	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	code, user := invoke(t, db, &http.Cookie{Name: CookieName, Value: expired})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Nil(t, user)
}

func TestRequireRoles_DeletedUser(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	token, err := SignSessionToken(42, models.RoleUser, testSecret)
	require.NoError(t, err)

	code, user := invoke(t, db, &http.Cookie{Name: CookieName, Value: token})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Nil(t, user)
}

func TestRequireRoles_RoleGate(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	u := models.User{Name: "n", Email: "u@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&u).Error)
	token, err := SignSessionToken(u.ID, u.Role, testSecret)
	require.NoError(t, err)
	ck := &http.Cookie{Name: CookieName, Value: token}

	code, _ := invoke(t, db, ck, models.RoleSeller, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, code)

	code, user := invoke(t, db, ck, models.RoleUser, models.RoleSeller)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, user)
	assert.Equal(t, u.ID, user.ID)

	// empty role list means any authenticated user
	code, _ = invoke(t, db, ck)
	assert.Equal(t, http.StatusOK, code)
}

// The gate trusts the database role, not the token's role claim.
func TestRequireRoles_RoleReadFromDB(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	u := models.User{Name: "n", Email: "u@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&u).Error)

	forged, err := SignSessionToken(u.ID, models.RoleAdmin, testSecret)
	require.NoError(t, err)

	code, _ := invoke(t, db, &http.Cookie{Name: CookieName, Value: forged}, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestParseResetToken(t *testing.T) {
	t.Parallel()

	reset, err := SignResetToken(7, testSecret)
	require.NoError(t, err)

	id, err := ParseResetToken(reset, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	session, err := SignSessionToken(7, models.RoleUser, testSecret)
	require.NoError(t, err)
	_, err = ParseResetToken(session, testSecret)
	assert.Error(t, err, "session tokens are not reset tokens")

	_, err = ParseResetToken(reset, []byte("other-secret"))
	assert.Error(t, err)
}
