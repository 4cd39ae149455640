package integration_tests

import "time"

type ExpectedInvoice struct {
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
	PaidTx              string     `json:"paidTx"`
	PaidAt              *time.Time `json:"paidAt"`
	DeliveryTx          string     `json:"deliveryTx"`
	DeliveredAt         *time.Time `json:"deliveredAt"`
	DeliveryError       string     `json:"deliveryError"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type ExpectedPayInstructions struct {
	Receiver            string `json:"receiver"`
	Token               string `json:"token"`
	AmountRequired      string `json:"amountRequired"`
	AmountRequiredHuman string `json:"amountRequiredHuman"`
	Note                string `json:"note"`
	PaymentUri          string `json:"paymentUri"`
}

type ExpectedCreateInvoiceResponseBody struct {
	Invoice         ExpectedInvoice         `json:"invoice"`
	PayInstructions ExpectedPayInstructions `json:"payInstructions"`
}

type ExpectedVerifyPaymentResponseBody struct {
	Success     bool            `json:"success"`
	DeliveredTx string          `json:"deliveredTx"`
	Invoice     ExpectedInvoice `json:"invoice"`
}

type ExpectedLegacyVerifyRequestBody struct {
	InvoiceID string `json:"invoiceId"`
	TxHash    string `json:"txHash"`
}
