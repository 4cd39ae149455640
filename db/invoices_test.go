package db

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/migrations"
	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun/migrate"
)

const (
	txA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	txB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type InvoiceStoreTestSuite struct {
	suite.Suite
	store *InvoiceStore
}

func (suite *InvoiceStoreTestSuite) SetupSuite() {
	dbConn, err := Open(&service.Config{DatabaseUri: "sqlite://file:invoice_store_test?mode=memory&cache=shared"})
	if err != nil {
		log.Fatalf("Error opening test db: %v", err)
	}
	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		log.Fatalf("Error initializing migrations: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		log.Fatalf("Error migrating test db: %v", err)
	}
	suite.store = NewInvoiceStore(dbConn)
}

func (suite *InvoiceStoreTestSuite) TearDownTest() {
	_, err := suite.store.DB.Exec("DELETE FROM invoices")
	assert.NoError(suite.T(), err)
}

func (suite *InvoiceStoreTestSuite) TearDownSuite() {
	suite.store.DB.Close()
}

func (suite *InvoiceStoreTestSuite) newInvoice(createdAt time.Time) *models.Invoice {
	invoice := &models.Invoice{
		ID:                  uuid.NewString(),
		Buyer:               "0x000000000000000000000000000000000000dead",
		Quantity:            "10",
		AmountOut:           "10000000000000000000",
		RequiredInputAmount: "5000000",
		InputToken:          "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		OutputToken:         "0x1111111111111111111111111111111111111111",
		Fee:                 3000,
		Receiver:            "0x2222222222222222222222222222222222222222",
		State:               common.InvoiceStateCreated,
		CreatedAt:           createdAt.UTC().Truncate(time.Microsecond),
	}
	assert.NoError(suite.T(), suite.store.PutInvoice(context.Background(), invoice))
	return invoice
}

func (suite *InvoiceStoreTestSuite) TestPutGetRoundTrip() {
	invoice := suite.newInvoice(time.Now())

	stored, err := suite.store.GetInvoice(context.Background(), invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), invoice.ID, stored.ID)
	assert.Equal(suite.T(), invoice.AmountOut, stored.AmountOut)
	assert.Equal(suite.T(), invoice.RequiredInputAmount, stored.RequiredInputAmount)
	assert.Equal(suite.T(), invoice.Fee, stored.Fee)
	assert.True(suite.T(), invoice.CreatedAt.Equal(stored.CreatedAt))
	assert.False(suite.T(), stored.Paid)
	assert.Empty(suite.T(), stored.PaidTx)
	assert.True(suite.T(), stored.PaidAt.IsZero())
}

func (suite *InvoiceStoreTestSuite) TestGetUnknownInvoice() {
	_, err := suite.store.GetInvoice(context.Background(), "does-not-exist")
	assert.ErrorIs(suite.T(), err, service.ErrInvoiceNotFound)
}

func (suite *InvoiceStoreTestSuite) TestPutReplaces() {
	invoice := suite.newInvoice(time.Now())
	invoice.RequiredInputAmount = "6000000"
	assert.NoError(suite.T(), suite.store.PutInvoice(context.Background(), invoice))

	stored, err := suite.store.GetInvoice(context.Background(), invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "6000000", stored.RequiredInputAmount)
}

func (suite *InvoiceStoreTestSuite) TestMarkInvoicePaidOnce() {
	ctx := context.Background()
	invoice := suite.newInvoice(time.Now())

	assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, invoice.ID, txA, time.Now().UTC()))
	err := suite.store.MarkInvoicePaid(ctx, invoice.ID, txB, time.Now().UTC())
	assert.ErrorIs(suite.T(), err, service.ErrInvoiceAlreadyPaid)

	stored, err := suite.store.GetInvoice(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), stored.Paid)
	assert.Equal(suite.T(), common.InvoiceStatePaid, stored.State)
	assert.Equal(suite.T(), txA, stored.PaidTx)
	assert.False(suite.T(), stored.PaidAt.IsZero())
}

func (suite *InvoiceStoreTestSuite) TestMarkInvoicePaidRejectsReusedTx() {
	ctx := context.Background()
	first := suite.newInvoice(time.Now())
	second := suite.newInvoice(time.Now())

	assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, first.ID, txA, time.Now().UTC()))
	err := suite.store.MarkInvoicePaid(ctx, second.ID, txA, time.Now().UTC())
	assert.ErrorIs(suite.T(), err, service.ErrPaymentAlreadyUsed)

	stored, err := suite.store.GetInvoice(ctx, second.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), stored.Paid)
}

func (suite *InvoiceStoreTestSuite) TestConcurrentMarkInvoicePaid() {
	ctx := context.Background()
	invoice := suite.newInvoice(time.Now())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- suite.store.MarkInvoicePaid(ctx, invoice.ID, txA, time.Now().UTC())
		}()
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(suite.T(), err, service.ErrInvoiceAlreadyPaid)
	}
	assert.Equal(suite.T(), 1, won)
}

func (suite *InvoiceStoreTestSuite) TestDeliveryTransitions() {
	ctx := context.Background()
	invoice := suite.newInvoice(time.Now())

	// not paid yet
	assert.ErrorIs(suite.T(), suite.store.MarkInvoiceDelivered(ctx, invoice.ID, txB, time.Now().UTC()), service.ErrInvoiceNotFound)
	claimed, err := suite.store.ClaimRedelivery(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), claimed)

	assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, invoice.ID, txA, time.Now().UTC()))
	assert.NoError(suite.T(), suite.store.MarkInvoiceDeliveryFailed(ctx, invoice.ID, txB, "not confirmed"))

	stored, err := suite.store.GetInvoice(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatePaid, stored.State)
	assert.Equal(suite.T(), txB, stored.DeliveryTx)
	assert.Equal(suite.T(), "not confirmed", stored.DeliveryError)

	// an empty hash keeps the recorded transfer
	assert.NoError(suite.T(), suite.store.MarkInvoiceDeliveryFailed(ctx, invoice.ID, "", "rpc down"))
	stored, err = suite.store.GetInvoice(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), txB, stored.DeliveryTx)
	assert.Equal(suite.T(), "rpc down", stored.DeliveryError)

	claimed, err = suite.store.ClaimRedelivery(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)
	claimed, err = suite.store.ClaimRedelivery(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), claimed)

	assert.NoError(suite.T(), suite.store.MarkInvoiceDelivered(ctx, invoice.ID, txB, time.Now().UTC()))
	stored, err = suite.store.GetInvoice(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStateDelivered, stored.State)
	assert.Empty(suite.T(), stored.DeliveryError)
	assert.False(suite.T(), stored.DeliveredAt.IsZero())

	// a delivered invoice is never marked failed again
	assert.Error(suite.T(), suite.store.MarkInvoiceDeliveryFailed(ctx, invoice.ID, "", "late"))
}

func (suite *InvoiceStoreTestSuite) TestListInvoices() {
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		invoice := suite.newInvoice(start.Add(time.Duration(i) * time.Hour))
		if i > 0 {
			assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, invoice.ID, fmt.Sprintf("0x%064x", i), time.Now().UTC()))
		}
	}

	paid, err := suite.store.ListInvoices(ctx, []string{common.InvoiceStatePaid}, start, start.Add(24*time.Hour))
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), paid, 2)

	all, err := suite.store.ListInvoices(ctx, []string{common.InvoiceStateCreated, common.InvoiceStatePaid}, start, start.Add(90*time.Minute))
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)
}

func (suite *InvoiceStoreTestSuite) TestListFailedDeliveries() {
	ctx := context.Background()
	failed := suite.newInvoice(time.Now().UTC())
	assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, failed.ID, fmt.Sprintf("0x%064x", 101), time.Now().UTC()))
	assert.NoError(suite.T(), suite.store.MarkInvoiceDeliveryFailed(ctx, failed.ID, "", "insufficient funds"))

	delivered := suite.newInvoice(time.Now().UTC())
	assert.NoError(suite.T(), suite.store.MarkInvoicePaid(ctx, delivered.ID, fmt.Sprintf("0x%064x", 102), time.Now().UTC()))
	assert.NoError(suite.T(), suite.store.MarkInvoiceDelivered(ctx, delivered.ID, fmt.Sprintf("0x%064x", 103), time.Now().UTC()))

	suite.newInvoice(time.Now().UTC())

	invoices, err := suite.store.ListFailedDeliveries(ctx, time.Now().UTC().Add(time.Minute))
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), invoices, 1)
	assert.Equal(suite.T(), failed.ID, invoices[0].ID)

	invoices, err = suite.store.ListFailedDeliveries(ctx, time.Now().UTC().Add(-time.Hour))
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), invoices)
}

func TestInvoiceStoreTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceStoreTestSuite))
}
