package transport

import (
	v2controllers "github.com/getAlby/tokenhub.go/controllers_v2"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/labstack/echo/v4"
)

// RegisterLegacyEndpoints keeps the /api routes of the first storefront
// integration working, they share the v2 controllers.
func RegisterLegacyEndpoints(svc *service.TokenhubService, e *echo.Echo, strictRateLimitMiddleware echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	invoiceCtrl := v2controllers.NewInvoiceController(svc)

	e.POST("/api/create-invoice", invoiceCtrl.CreateInvoice, strictRateLimitMiddleware, logMw)
	e.POST("/api/verify-payment", invoiceCtrl.VerifyPayment, strictRateLimitMiddleware, logMw)
	e.GET("/api/invoice", invoiceCtrl.GetInvoice, logMw)
}
