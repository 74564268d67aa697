package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTenant(t *testing.T, header string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(TenantHeader, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	err := ResolveTenant()(func(c echo.Context) error {
		captured = c
		return nil
	})(c)
	require.NoError(t, err)
	return captured
}

func TestResolveTenantReadsHeader(t *testing.T) {
	c := runTenant(t, "acme-events")
	assert.Equal(t, "acme-events", TenantID(c))
}

func TestResolveTenantDefaultsToEmpty(t *testing.T) {
	c := runTenant(t, "")
	assert.Empty(t, TenantID(c), "single-tenant deploys run without the header")
}
