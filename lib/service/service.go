package service

import (
	"context"
	"time"

	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/evm"
	"github.com/getAlby/tokenhub.go/rabbitmq"
	"github.com/ziflex/lecho/v3"
)

// InvoiceStore is the durable invoice mapping. The Mark* methods are
// conditional writes, they fail instead of overwriting a concurrent transition.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	PutInvoice(ctx context.Context, invoice *models.Invoice) error
	MarkInvoicePaid(ctx context.Context, id, txHash string, paidAt time.Time) error
	MarkInvoiceDelivered(ctx context.Context, id, txHash string, deliveredAt time.Time) error
	MarkInvoiceDeliveryFailed(ctx context.Context, id, txHash, reason string) error
	ClaimRedelivery(ctx context.Context, id string) (bool, error)
}

type TokenhubService struct {
	Config         *Config
	Store          InvoiceStore
	ChainClient    evm.ChainClientWrapper
	Logger         *lecho.Logger
	InvoicePubSub  *Pubsub
	RabbitMQClient rabbitmq.Client
}

// DeliveryEnabled reports whether the gateway holds a signing key and can
// therefore send the sale token.
func (svc *TokenhubService) DeliveryEnabled() bool {
	_, ok := svc.ChainClient.SignerAddress()
	return ok
}
