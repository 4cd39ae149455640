package service

import "errors"

var (
	ErrBadArguments            = errors.New("bad arguments")
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrQuoteUnavailable        = errors.New("quote unavailable")
	ErrChainUnavailable        = errors.New("chain rpc unavailable")
	ErrPaymentPending          = errors.New("payment transaction not settled yet")
	ErrPaymentNotVerified      = errors.New("payment not verified")
	ErrPaymentAlreadyUsed      = errors.New("payment transaction already used for another invoice")
	ErrInvoiceAlreadyPaid      = errors.New("invoice already paid")
	ErrInvoiceNotPaid          = errors.New("invoice not paid")
	ErrInvoiceAlreadyDelivered = errors.New("invoice already delivered")
	ErrDeliveryInProgress      = errors.New("delivery in progress")
	ErrDeliveryDisabled        = errors.New("delivery disabled")
	ErrDeliveryFailed          = errors.New("delivery failed")
)
