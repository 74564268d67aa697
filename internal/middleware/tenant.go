package middleware

// tenant.go carries the tenant resolved by the surrounding multi-tenant
// platform into the reservation core.  Tenant routing itself is an
// external collaborator; this middleware only reads the header it sets
// and stamps the value onto every ledger row created downstream.

import "github.com/labstack/echo/v4"

const ctxTenantID = "tenant_id"

// TenantHeader is the header the host platform uses to hand the
// resolved tenant to internal services.
const TenantHeader = "X-Tenant-ID"

// ResolveTenant stores the request's tenant ID in the context.  An
// absent header leaves the tenant empty, which single-tenant deploys
// rely on.
func ResolveTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if t := c.Request().Header.Get(TenantHeader); t != "" {
				c.Set(ctxTenantID, t)
			}
			return next(c)
		}
	}
}

// TenantID returns the tenant bound to the request, or "" when none.
func TenantID(c echo.Context) string {
	if v, ok := c.Get(ctxTenantID).(string); ok {
		return v
	}
	return ""
}
