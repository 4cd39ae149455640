package transport

import (
	v2controllers "github.com/getAlby/tokenhub.go/controllers_v2"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/labstack/echo/v4"
)

func RegisterV2Endpoints(svc *service.TokenhubService, e *echo.Echo, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	invoiceCtrl := v2controllers.NewInvoiceController(svc)

	e.GET("/health", v2controllers.NewHealthController().Check)

	e.POST("/v2/invoices", invoiceCtrl.CreateInvoice, strictRateLimitMiddleware, logMw)
	e.GET("/v2/invoices/:id", invoiceCtrl.GetInvoice, logMw)
	e.GET("/v2/invoices/:id/qr", invoiceCtrl.InvoiceQR, logMw)
	e.POST("/v2/invoices/:id/verify", invoiceCtrl.VerifyPayment, strictRateLimitMiddleware, logMw)

	//require admin token for operator endpoints
	if svc.Config.AdminToken != "" {
		e.POST("/v2/admin/invoices/:id/redeliver", invoiceCtrl.Redeliver, adminMw, logMw)
	}
}
