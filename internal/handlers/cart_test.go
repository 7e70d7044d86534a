package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahid0mer/shopease/internal/models"
)

func TestCartAdd_NewLine(t *testing.T) {
	env := newTestEnv(t)
	user, ck := env.createUser("buyer@example.com", models.RoleUser)
	prod := env.createProduct(99, 4999, 0)

	rec := env.do(http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": prod.ID, "quantity": 2}, nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, env.DB.Where("user_id = ?", user.ID).First(&item).Error)
	assert.Equal(t, prod.ID, item.ProductID)
	assert.Equal(t, uint(2), item.Quantity)

	// response carries the populated cart
	body := decodeBody(t, rec)
	lines := body["cart"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, float64(prod.ID), line["product"].(map[string]any)["id"])
}

func TestCartAdd_MergesSameProduct(t *testing.T) {
	env := newTestEnv(t)
	user, ck := env.createUser("buyer@example.com", models.RoleUser)
	prod := env.createProduct(99, 4999, 0)

	rec := env.do(http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": prod.ID, "quantity": 1}, nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": prod.ID, "quantity": 3}, nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.CartItem
	require.NoError(t, env.DB.Where("user_id = ?", user.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, uint(4), items[0].Quantity)
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	_, ck := env.createUser("buyer@example.com", models.RoleUser)

	rec := env.do(http.MethodPost, "/api/cart/add",
		map[string]any{"product_id": 12345, "quantity": 1}, nil, ck)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartUpdateQuantity(t *testing.T) {
	env := newTestEnv(t)
	user, ck := env.createUser("buyer@example.com", models.RoleUser)
	prod := env.createProduct(99, 4999, 0)

	item := models.CartItem{UserID: user.ID, ProductID: prod.ID, Quantity: 1}
	require.NoError(t, env.DB.Create(&item).Error)

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/cart/update/%d", item.ID),
		map[string]any{"quantity": 5}, nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.CartItem
	require.NoError(t, env.DB.First(&got, item.ID).Error)
	assert.Equal(t, uint(5), got.Quantity)
}

func TestCartUpdateQuantity_UnknownLine(t *testing.T) {
	env := newTestEnv(t)
	_, ck := env.createUser("buyer@example.com", models.RoleUser)

	rec := env.do(http.MethodPut, "/api/cart/update/777",
		map[string]any{"quantity": 5}, nil, ck)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartUpdateQuantity_OtherUsersLine(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.createUser("owner@example.com", models.RoleUser)
	_, ck := env.createUser("other@example.com", models.RoleUser)
	prod := env.createProduct(99, 4999, 0)

	item := models.CartItem{UserID: owner.ID, ProductID: prod.ID, Quantity: 1}
	require.NoError(t, env.DB.Create(&item).Error)

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/cart/update/%d", item.ID),
		map[string]any{"quantity": 5}, nil, ck)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartRemove(t *testing.T) {
	env := newTestEnv(t)
	user, ck := env.createUser("buyer@example.com", models.RoleUser)
	prod := env.createProduct(99, 4999, 0)

	item := models.CartItem{UserID: user.ID, ProductID: prod.ID, Quantity: 1}
	require.NoError(t, env.DB.Create(&item).Error)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/cart/remove/%d", item.ID), nil, nil, ck)
	require.Equal(t, http.StatusOK, rec.Code)

	var n int64
	env.DB.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&n)
	assert.Zero(t, n)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/cart/remove/%d", item.ID), nil, nil, ck)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/cart", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
