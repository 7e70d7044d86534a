package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahid0mer/shopease/internal/models"
)

// outOfStock flips a product off the storefront. Done as an update because
// the column default would override a zero-value insert.
func outOfStock(env *testEnv, p *models.Product) {
	env.T.Helper()
	require.NoError(env.T, env.DB.Model(p).Update("in_stock", false).Error)
	p.InStock = false
}

func TestProductList_InStockOnly(t *testing.T) {
	env := newTestEnv(t)

	visible := env.createProduct(77, 10000, 0)
	hidden := env.createProduct(77, 5000, 0)
	outOfStock(env, hidden)

	rec := env.do(http.MethodGet, "/api/product/list", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, float64(visible.ID), data[0].(map[string]any)["id"])

	meta, ok := body["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), meta["total"])

	// out-of-stock products stay reachable by id
	rec = env.do(http.MethodGet, fmt.Sprintf("/api/product/%d", hidden.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSellerProducts_IncludesOutOfStock(t *testing.T) {
	env := newTestEnv(t)
	seller, sellerCk := env.createUser("seller@example.com", models.RoleSeller)
	other, _ := env.createUser("other@example.com", models.RoleSeller)

	env.createProduct(seller.ID, 10000, 0)
	hidden := env.createProduct(seller.ID, 5000, 0)
	outOfStock(env, hidden)
	env.createProduct(other.ID, 7000, 0)

	rec := env.do(http.MethodGet, "/api/seller/products", nil, nil, sellerCk)
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := decodeBody(t, rec)["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	for _, item := range data {
		assert.Equal(t, float64(seller.ID), item.(map[string]any)["seller_id"])
	}
}

func TestProductUpdate_OwnerOrAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.createUser("owner@example.com", models.RoleSeller)
	_, otherCk := env.createUser("other@example.com", models.RoleSeller)
	_, adminCk := env.createUser("admin@example.com", models.RoleAdmin)

	prod := env.createProduct(owner.ID, 10000, 0)
	body := map[string]any{"name": "Renamed", "price": 12000}

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/product/%d", prod.ID), body, nil, otherCk)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, prod.ID).Error)
	assert.Equal(t, "Widget", got.Name)

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/product/%d", prod.ID), body, nil, adminCk)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, env.DB.First(&got, prod.ID).Error)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(12000), got.Price)
}

func TestProductSetStock_GatesListing(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerCk := env.createUser("owner@example.com", models.RoleSeller)
	_, otherCk := env.createUser("other@example.com", models.RoleSeller)

	prod := env.createProduct(owner.ID, 10000, 0)

	rec := env.do(http.MethodPatch, fmt.Sprintf("/api/product/%d/stock", prod.ID),
		map[string]any{"in_stock": false}, nil, otherCk)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/product/%d/stock", prod.ID),
		map[string]any{"in_stock": false}, nil, ownerCk)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/product/list", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["data"])
}

func TestProductDelete_ForeignSellerForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.createUser("owner@example.com", models.RoleSeller)
	_, otherCk := env.createUser("other@example.com", models.RoleSeller)

	prod := env.createProduct(owner.ID, 10000, 0)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/product/%d", prod.ID), nil, nil, otherCk)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var n int64
	env.DB.Model(&models.Product{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestProductCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	seller, sellerCk := env.createUser("seller@example.com", models.RoleSeller)

	rec := env.do(http.MethodPost, "/api/product/add",
		map[string]any{"name": "Gadget", "price": 0}, nil, sellerCk)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/product/add",
		map[string]any{"name": "Gadget", "price": 19900, "offer_price": 14900}, nil, sellerCk)
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	require.NoError(t, env.DB.Where("name = ?", "Gadget").First(&prod).Error)
	assert.Equal(t, seller.ID, prod.SellerID)
	assert.True(t, prod.InStock)
}
