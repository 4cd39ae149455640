package rabbitmq_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/rabbitmq"
	"github.com/getAlby/tokenhub.go/rabbitmq/mock_rabbitmq"
	"github.com/golang/mock/gomock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

//go:generate mockgen -destination=./mock_rabbitmq/rabbitmq.go github.com/getAlby/tokenhub.go/rabbitmq AMQPClient

func encodeJSON(ctx context.Context, w io.Writer, invoice models.Invoice) error {
	return json.NewEncoder(w).Encode(invoice)
}

func TestStartPublishInvoices(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client, err := rabbitmq.NewClient(amqpClient, rabbitmq.WithInvoiceExchange("test_invoice"))
	assert.NoError(t, err)

	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Eq("test_invoice"), gomock.Eq("topic"), true, false, false, false, gomock.Nil()).
		Times(1).
		Return(nil)

	published := make(chan amqp.Publishing, 2)
	keys := make(chan string, 2)
	amqpClient.EXPECT().
		PublishWithContext(gomock.Any(), gomock.Eq("test_invoice"), gomock.Any(), false, false, gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
			keys <- key
			published <- msg
			return nil
		})

	paid := make(chan models.Invoice, 1)
	delivered := make(chan models.Invoice, 1)
	subscribe := func() (chan models.Invoice, chan models.Invoice, error) {
		return paid, delivered, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- client.StartPublishInvoices(ctx, subscribe, encodeJSON)
	}()

	paid <- models.Invoice{ID: "a", State: "paid", Paid: true}
	assert.Equal(t, "invoice.paid", <-keys)
	msg := <-published
	assert.Equal(t, "application/json", msg.ContentType)
	decoded := models.Invoice{}
	assert.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "a", decoded.ID)

	delivered <- models.Invoice{ID: "b", State: "delivered", Paid: true}
	assert.Equal(t, "invoice.delivered", <-keys)
	msg = <-published
	assert.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "b", decoded.ID)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestPublishInvoiceExchangeError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client, err := rabbitmq.NewClient(amqpClient)
	assert.NoError(t, err)

	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Eq("tokenhub_invoice"), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Times(1).
		Return(amqp.ErrClosed)

	err = client.PublishInvoice(context.Background(), models.Invoice{ID: "a", State: "paid"}, encodeJSON)
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
