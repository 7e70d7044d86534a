package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("%w: bad input", ErrValidation), want: http.StatusBadRequest},
		{name: "integrity", err: fmt.Errorf("%w: signature mismatch", ErrIntegrity), want: http.StatusBadRequest},
		{name: "unauthorized", err: ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("%w: product 7", ErrNotFound), want: http.StatusNotFound},
		{name: "conflict", err: ErrConflict, want: http.StatusConflict},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessage_StripsSentinelLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "wrapped validation", err: fmt.Errorf("%w: no items to order", ErrValidation), want: "no items to order"},
		{name: "wrapped not found", err: fmt.Errorf("%w: product 7", ErrNotFound), want: "product 7"},
		{name: "bare sentinel", err: ErrConflict, want: "conflict"},
		{name: "plain error untouched", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestHandler_WrappedSentinel(t *testing.T) {
	t.Parallel()
	c, rec := newContext(t)

	Handler(fmt.Errorf("%w: quantity must be at least 1", ErrValidation), c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"quantity must be at least 1"}`, rec.Body.String())
}

func TestHandler_MasksInternal(t *testing.T) {
	t.Parallel()
	c, rec := newContext(t)

	Handler(errors.New("pq: connection refused"), c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error"}`, rec.Body.String())
}

func TestHandler_EchoHTTPError(t *testing.T) {
	t.Parallel()
	c, rec := newContext(t)

	Handler(echo.NewHTTPError(http.StatusNotFound, "order not found"), c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"order not found"}`, rec.Body.String())
}
