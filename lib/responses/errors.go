package responses

import (
	"errors"
	"net/http"

	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Kind:           "server_error",
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Kind:           "bad_arguments",
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Kind:           "bad_auth",
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Kind:           "not_found",
	Message:        "invoice not found",
	HttpStatusCode: 404,
}

var QuoteUnavailableError = ErrorResponse{
	Error:          true,
	Code:           10,
	Kind:           "quote_unavailable",
	Message:        "could not get a price quote, please try again later",
	HttpStatusCode: 500,
}

var ChainUnavailableError = ErrorResponse{
	Error:          true,
	Code:           11,
	Kind:           "chain_unavailable",
	Message:        "the chain rpc is unavailable, please try again later",
	HttpStatusCode: 502,
}

var PaymentPendingError = ErrorResponse{
	Error:          true,
	Code:           12,
	Kind:           "payment_pending",
	Message:        "payment transaction not settled yet, try again shortly",
	HttpStatusCode: 400,
}

var PaymentNotVerifiedError = ErrorResponse{
	Error:          true,
	Code:           13,
	Kind:           "payment_not_verified",
	Message:        "transaction does not pay the required amount to the receiver",
	HttpStatusCode: 400,
}

var PaymentAlreadyUsedError = ErrorResponse{
	Error:          true,
	Code:           14,
	Kind:           "payment_already_used",
	Message:        "transaction already used to pay another invoice",
	HttpStatusCode: 409,
}

var InvoiceAlreadyPaidError = ErrorResponse{
	Error:          true,
	Code:           15,
	Kind:           "invoice_already_paid",
	Message:        "invoice already paid",
	HttpStatusCode: 409,
}

var InvoiceNotPaidError = ErrorResponse{
	Error:          true,
	Code:           16,
	Kind:           "invoice_not_paid",
	Message:        "invoice not paid",
	HttpStatusCode: 409,
}

var InvoiceAlreadyDeliveredError = ErrorResponse{
	Error:          true,
	Code:           17,
	Kind:           "invoice_already_delivered",
	Message:        "invoice already delivered",
	HttpStatusCode: 409,
}

var DeliveryInProgressError = ErrorResponse{
	Error:          true,
	Code:           18,
	Kind:           "delivery_in_progress",
	Message:        "an earlier delivery has not settled yet",
	HttpStatusCode: 409,
}

var DeliveryDisabledError = ErrorResponse{
	Error:          true,
	Code:           19,
	Kind:           "delivery_disabled",
	Message:        "delivery is disabled, no signing key configured",
	HttpStatusCode: 500,
}

var DeliveryFailedError = ErrorResponse{
	Error:          true,
	Code:           20,
	Kind:           "delivery_failed",
	Message:        "payment verified but token delivery failed, an operator has been notified",
	HttpStatusCode: 502,
}

// ordered, the first match wins
var serviceErrors = []struct {
	err      error
	response ErrorResponse
}{
	{service.ErrBadArguments, BadArgumentsError},
	{service.ErrInvoiceNotFound, NotFoundError},
	{service.ErrQuoteUnavailable, QuoteUnavailableError},
	{service.ErrChainUnavailable, ChainUnavailableError},
	{service.ErrPaymentPending, PaymentPendingError},
	{service.ErrPaymentNotVerified, PaymentNotVerifiedError},
	{service.ErrPaymentAlreadyUsed, PaymentAlreadyUsedError},
	{service.ErrInvoiceAlreadyPaid, InvoiceAlreadyPaidError},
	{service.ErrInvoiceNotPaid, InvoiceNotPaidError},
	{service.ErrInvoiceAlreadyDelivered, InvoiceAlreadyDeliveredError},
	{service.ErrDeliveryInProgress, DeliveryInProgressError},
	{service.ErrDeliveryDisabled, DeliveryDisabledError},
	{service.ErrDeliveryFailed, DeliveryFailedError},
}

// FromServiceError maps err onto the error catalogue. Client errors carry
// the detailed error text, server errors only the catalogue message.
func FromServiceError(err error) (ErrorResponse, bool) {
	for _, known := range serviceErrors {
		if errors.Is(err, known.err) {
			response := known.response
			if response.HttpStatusCode < 500 {
				response.Message = err.Error()
			}
			return response, true
		}
	}
	return ErrorResponse{}, false
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)

	if response, ok := FromServiceError(err); ok {
		if response.HttpStatusCode >= 500 {
			captureException(c, err)
		}
		c.JSON(response.HttpStatusCode, response)
		return
	}
	if isErrAllowedForSentry(err) {
		captureException(c, err)
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
		return
	}
	c.JSON(http.StatusInternalServerError, GeneralServerError)
}

func captureException(c echo.Context, err error) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("InvoiceID", c.Param("id"))
			hub.CaptureException(err)
		})
	}
}

// isErrAllowedForSentry filters out bad auth responses and 4xx echo errors
// without a body, those are noise.
func isErrAllowedForSentry(err error) bool {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return true
	}
	switch msg := he.Message.(type) {
	case echo.Map:
		return msg["code"] != BadAuthError.Code
	case ErrorResponse:
		return msg.Code != BadAuthError.Code
	default:
		return he.Code >= 500
	}
}
