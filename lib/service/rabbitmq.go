package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
)

const eventBuffer = 64

type InvoiceEvent struct {
	Event   string         `json:"event"`
	ChainID string         `json:"chain_id,omitempty"`
	Invoice models.Invoice `json:"invoice"`
}

// SubscribeInvoiceStates returns channels receiving every invoice that became
// paid or delivered.
func (svc *TokenhubService) SubscribeInvoiceStates() (paid chan models.Invoice, delivered chan models.Invoice, err error) {
	paid = make(chan models.Invoice, eventBuffer)
	delivered = make(chan models.Invoice, eventBuffer)
	_, err = svc.InvoicePubSub.Subscribe(common.InvoiceStatePaid, paid)
	if err != nil {
		return nil, nil, err
	}
	_, err = svc.InvoicePubSub.Subscribe(common.InvoiceStateDelivered, delivered)
	if err != nil {
		return nil, nil, err
	}
	return paid, delivered, nil
}

func (svc *TokenhubService) EncodeInvoiceEvent(ctx context.Context, w io.Writer, invoice models.Invoice) error {
	event := InvoiceEvent{
		Event:   "invoice." + invoice.State,
		Invoice: invoice,
	}
	if svc.ChainClient != nil && svc.ChainClient.ChainID() != nil {
		event.ChainID = svc.ChainClient.ChainID().String()
	}
	return json.NewEncoder(w).Encode(event)
}
