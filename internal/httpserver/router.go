package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
)

type Deps struct {
	Auth     *AuthHTTP
	Catalog  *CatalogHTTP
	Checkout *CheckoutHTTP
	Payment  *PaymentHTTP
	Orders   *OrderHTTP

	Authorizer *auth.Authorizer
	// Ready reports whether the service can take traffic (database reachable).
	Ready func(ctx context.Context) error
	// RateLimitRPS throttles auth and checkout per client ip; zero disables it.
	RateLimitRPS float64
	// InsecureCookies drops the Secure flag from the CSRF cookie for plain-http development.
	InsecureCookies bool
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Warn("ready_check_failed", "error", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	throttle := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.RateLimitRPS > 0 {
		throttle = echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(d.RateLimitRPS)))
	}

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth", throttle)
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/logout", d.Auth.Logout)

	products := api.Group("/catalog/products")
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("", d.Catalog.GetProducts)
	products.GET("/:id", d.Catalog.GetProduct)

	api.POST("/checkout/initialize", d.Checkout.Initialize, throttle)

	payment := api.Group("/payment")
	payment.GET("/callback", d.Payment.Callback)
	payment.POST("/webhook", d.Payment.Webhook)

	orders := api.Group("/orders")
	orders.GET("/track", d.Orders.Track)
	orders.GET("/reference/:reference", d.Orders.ByReference)

	account := api.Group("/account", d.Authorizer.RequireAuth)
	account.GET("/orders", d.Orders.AccountOrders)

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = !d.InsecureCookies
	csrfCfg.Skipper = bearerAuthenticated
	admin := api.Group("/admin", d.Authorizer.RequireAdmin, csrf.Middleware(csrfCfg))

	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PATCH("/products/:id", d.Catalog.PatchProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.POST("/products/:id/image", d.Catalog.UploadImage)

	admin.GET("/orders", d.Orders.AdminList)
	admin.GET("/orders/:id", d.Orders.AdminGet)
	admin.PATCH("/orders/:id/status", d.Orders.AdminUpdateStatus)
	admin.GET("/stats", d.Orders.AdminStats)
	admin.GET("/payments/events", d.Orders.AdminPaymentEvents)
}

// bearerAuthenticated is true when the caller sent its token in a header,
// which a cross-site form post cannot do.
func bearerAuthenticated(c echo.Context) bool {
	p, ok := auth.PrincipalFrom(c)
	return ok && !p.ViaCookie
}
