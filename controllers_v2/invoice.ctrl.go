package v2controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/lib/responses"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"
)

// InvoiceController : Invoice controller struct
type InvoiceController struct {
	svc *service.TokenhubService
}

func NewInvoiceController(svc *service.TokenhubService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

type Invoice struct {
	ID                  string     `json:"id"`
	Buyer               string     `json:"buyer"`
	Qty                 string     `json:"qty"`
	AmountOut           string     `json:"amountOut"`
	RequiredInputAmount string     `json:"requiredInputAmount"`
	TokenIn             string     `json:"tokenIn"`
	TokenOut            string     `json:"tokenOut"`
	Fee                 int64      `json:"fee"`
	Receiver            string     `json:"receiver"`
	State               string     `json:"state"`
	Paid                bool       `json:"paid"`
	PaidTx              string     `json:"paidTx,omitempty"`
	PaidAt              *time.Time `json:"paidAt,omitempty"`
	DeliveryTx          string     `json:"deliveryTx,omitempty"`
	DeliveredAt         *time.Time `json:"deliveredAt,omitempty"`
	DeliveryError       string     `json:"deliveryError,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type PayInstructions struct {
	Receiver            string `json:"receiver"`
	Token               string `json:"token"`
	AmountRequired      string `json:"amountRequired"`
	AmountRequiredHuman string `json:"amountRequiredHuman"`
	Note                string `json:"note"`
	PaymentUri          string `json:"paymentUri"`
}

type CreateInvoiceRequestBody struct {
	Buyer string      `json:"buyer" validate:"required,evm_address"`
	Qty   json.Number `json:"qty" validate:"required"`
	Fee   int64       `json:"fee" validate:"gte=0"`
}

type CreateInvoiceResponseBody struct {
	Invoice         Invoice         `json:"invoice"`
	PayInstructions PayInstructions `json:"payInstructions"`
}

type VerifyPaymentRequestBody struct {
	InvoiceID string `json:"invoiceId" param:"id" validate:"required"`
	TxHash    string `json:"txHash" validate:"required,tx_hash"`
}

type VerifyPaymentResponseBody struct {
	Success     bool    `json:"success"`
	DeliveredTx string  `json:"deliveredTx"`
	Invoice     Invoice `json:"invoice"`
}

type RedeliverRequestBody struct {
	InvoiceID string `param:"id" validate:"required"`
	Force     bool   `json:"force"`
}

// CreateInvoice godoc
// @Summary      Create an invoice
// @Description  Quotes qty of the sale token in the payment token and returns the invoice together with the payment instructions
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        invoice  body      CreateInvoiceRequestBody  true  "Create invoice"
// @Success      200      {object}  CreateInvoiceResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /v2/invoices [post]
func (controller *InvoiceController) CreateInvoice(c echo.Context) error {
	var body CreateInvoiceRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid create invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, instructions, err := controller.svc.CreateInvoice(c.Request().Context(), body.Buyer, body.Qty.String(), body.Fee)
	if err != nil {
		c.Logger().Errorf("Failed to create invoice: %v", err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, &CreateInvoiceResponseBody{
		Invoice: toInvoice(invoice),
		PayInstructions: PayInstructions{
			Receiver:            instructions.Receiver,
			Token:               instructions.Token,
			AmountRequired:      instructions.AmountRequired,
			AmountRequiredHuman: instructions.AmountRequiredHuman,
			Note:                instructions.Note,
			PaymentUri:          instructions.PaymentURI,
		},
	})
}

// VerifyPayment godoc
// @Summary      Verify an invoice payment
// @Description  Checks the receipt of txHash for a transfer paying the invoice and delivers the sale token to the buyer
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id       path      string                    true  "Invoice id"
// @Param        payment  body      VerifyPaymentRequestBody  true  "Payment transaction"
// @Success      200      {object}  VerifyPaymentResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Failure      502      {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/verify [post]
func (controller *InvoiceController) VerifyPayment(c echo.Context) error {
	var body VerifyPaymentRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load verify payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid verify payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, deliveredTx, err := controller.svc.VerifyInvoicePayment(c.Request().Context(), body.InvoiceID, body.TxHash)
	if err != nil {
		c.Logger().Errorf("Failed to verify payment %s for invoice %s: %v", body.TxHash, body.InvoiceID, err)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, &VerifyPaymentResponseBody{
		Success:     true,
		DeliveredTx: deliveredTx,
		Invoice:     toInvoice(invoice),
	})
}

// GetInvoice godoc
// @Summary      Retrieve an invoice
// @Description  Returns the invoice by id
// @Accept       json
// @Produce      json
// @Tags         Invoice
// @Param        id   path      string  true  "Invoice id"
// @Success      200  {object}  Invoice
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id} [get]
func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		id = c.QueryParam("id")
	}
	invoice, err := controller.svc.FindInvoice(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, toInvoice(invoice))
}

// InvoiceQR godoc
// @Summary      Payment QR code
// @Description  Returns a PNG QR code of the EIP-681 payment request of the invoice
// @Produce      png
// @Tags         Invoice
// @Param        id   path  string  true  "Invoice id"
// @Success      200
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{id}/qr [get]
func (controller *InvoiceController) InvoiceQR(c echo.Context) error {
	invoice, err := controller.svc.FindInvoice(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	instructions, err := controller.svc.PayInstructionsFor(invoice)
	if err != nil {
		return err
	}
	png, err := qrcode.Encode(instructions.PaymentURI, qrcode.Medium, 256)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Redeliver godoc
// @Summary      Redeliver a paid invoice
// @Description  Retries the token delivery of a paid invoice whose delivery failed. An earlier delivery that confirmed in the meantime is adopted.
// @Accept       json
// @Produce      json
// @Tags         Admin
// @Param        id     path      string  true   "Invoice id"
// @Param        force  query     bool    false  "Send again even if the earlier delivery is still unknown"
// @Success      200    {object}  VerifyPaymentResponseBody
// @Failure      404    {object}  responses.ErrorResponse
// @Failure      409    {object}  responses.ErrorResponse
// @Failure      502    {object}  responses.ErrorResponse
// @Router       /v2/admin/invoices/{id}/redeliver [post]
// @Security     ApiKeyAuth
func (controller *InvoiceController) Redeliver(c echo.Context) error {
	var body RedeliverRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load redeliver request: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	// echo binds query params for GET only
	if force, err := strconv.ParseBool(c.QueryParam("force")); err == nil {
		body.Force = body.Force || force
	}

	invoice, deliveredTx, err := controller.svc.RedeliverInvoice(c.Request().Context(), body.InvoiceID, body.Force)
	if err != nil {
		c.Logger().Errorf("Failed to redeliver invoice %s: %v", body.InvoiceID, err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &VerifyPaymentResponseBody{
		Success:     true,
		DeliveredTx: deliveredTx,
		Invoice:     toInvoice(invoice),
	})
}

func errorResponse(c echo.Context, err error) error {
	response, ok := responses.FromServiceError(err)
	if !ok {
		return err
	}
	if response.HttpStatusCode >= http.StatusInternalServerError {
		sentry.CaptureException(err)
	}
	return c.JSON(response.HttpStatusCode, response)
}

func toInvoice(invoice *models.Invoice) Invoice {
	result := Invoice{
		ID:                  invoice.ID,
		Buyer:               invoice.Buyer,
		Qty:                 invoice.Quantity,
		AmountOut:           invoice.AmountOut,
		RequiredInputAmount: invoice.RequiredInputAmount,
		TokenIn:             invoice.InputToken,
		TokenOut:            invoice.OutputToken,
		Fee:                 invoice.Fee,
		Receiver:            invoice.Receiver,
		State:               invoice.State,
		Paid:                invoice.Paid,
		PaidTx:              invoice.PaidTx,
		DeliveryTx:          invoice.DeliveryTx,
		DeliveryError:       invoice.DeliveryError,
		CreatedAt:           invoice.CreatedAt,
	}
	if !invoice.PaidAt.IsZero() {
		paidAt := invoice.PaidAt.Time
		result.PaidAt = &paidAt
	}
	if !invoice.DeliveredAt.IsZero() {
		deliveredAt := invoice.DeliveredAt.Time
		result.DeliveredAt = &deliveredAt
	}
	return result
}
