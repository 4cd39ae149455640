package rabbitmq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool reuses the encoding buffers between published invoices.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"
)

type (
	SubscribeToInvoicesFunc = func() (paid chan models.Invoice, delivered chan models.Invoice, err error)
	EncodeInvoiceFunc       = func(ctx context.Context, w io.Writer, invoice models.Invoice) error
)

type Client interface {
	// StartPublishInvoices publishes every invoice state change until ctx is done.
	StartPublishInvoices(context.Context, SubscribeToInvoicesFunc, EncodeInvoiceFunc) error
	PublishInvoice(context.Context, models.Invoice, EncodeInvoiceFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	invoiceExchange string
	declareOnce     sync.Once
	declareErr      error
}

type ClientOption = func(client *DefaultClient)

func WithInvoiceExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.invoiceExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient: amqpClient,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		invoiceExchange: "tokenhub_invoice",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

func (client *DefaultClient) declareExchange() error {
	client.declareOnce.Do(func() {
		client.declareErr = client.amqpClient.ExchangeDeclare(
			client.invoiceExchange,
			// topic is a type of exchange that allows routing messages to different queue's bases on a routing key
			"topic",
			// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
			// declared when there are no remaining bindings.
			true,
			false,
			// Non-Internal exchange's accept direct publishing
			false,
			// Nowait: We set this to false as we want to wait for a server response
			// to check whether the exchange was created succesfully
			false,
			nil,
		)
	})
	return client.declareErr
}

func (client *DefaultClient) StartPublishInvoices(ctx context.Context, invoicesSubscribeFunc SubscribeToInvoicesFunc, payloadFunc EncodeInvoiceFunc) error {
	err := client.declareExchange()
	if err != nil {
		return err
	}

	client.logger.Info("Starting rabbitmq publisher")

	paid, delivered, err := invoicesSubscribeFunc()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case invoice := <-paid:
			err = client.PublishInvoice(ctx, invoice, payloadFunc)
			if err != nil {
				captureErr(client.logger, err)
			}
		case invoice := <-delivered:
			err = client.PublishInvoice(ctx, invoice, payloadFunc)
			if err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

// PublishInvoice publishes invoice with the routing key invoice.<state>.
func (client *DefaultClient) PublishInvoice(ctx context.Context, invoice models.Invoice, payloadFunc EncodeInvoiceFunc) error {
	err := client.declareExchange()
	if err != nil {
		return err
	}

	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err = payloadFunc(ctx, payload, invoice)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("invoice.%s", invoice.State)

	err = client.amqpClient.PublishWithContext(ctx,
		client.invoiceExchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			// the buffer goes back to the pool
			Body: bytes.Clone(payload.Bytes()),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Successfully published invoice %s to rabbitmq with key %s", invoice.ID, key)

	return nil
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
