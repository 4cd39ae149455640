package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	tcommon "github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/stretchr/testify/assert"
)

const testBuyer = "0x000000000000000000000000000000000000dEaD"

func TestCreateInvoice(t *testing.T) {
	chain := newStubChain()
	svc := newTestService(chain)
	ctx := context.Background()

	invoice, instructions, err := svc.CreateInvoice(ctx, " "+testBuyer+" ", "10", 0)
	assert.NoError(t, err)
	assert.Equal(t, "0x000000000000000000000000000000000000dead", invoice.Buyer)
	assert.Equal(t, "10", invoice.Quantity)
	assert.Equal(t, "10000000000000000000", invoice.AmountOut)
	assert.Equal(t, "5000000", invoice.RequiredInputAmount)
	assert.Equal(t, int64(3000), invoice.Fee)
	assert.Equal(t, tcommon.InvoiceStateCreated, invoice.State)
	assert.False(t, invoice.Paid)
	assert.Equal(t, "5", instructions.AmountRequiredHuman)
	assert.Equal(t, invoice.Receiver, instructions.Receiver)

	stored, err := svc.FindInvoice(ctx, invoice.ID)
	assert.NoError(t, err)
	assert.Equal(t, invoice.RequiredInputAmount, stored.RequiredInputAmount)

	bad := []struct{ buyer, qty string }{
		{"", "10"},
		{testBuyer, ""},
		{"0x1234", "10"},
		{testBuyer, "ten"},
		{testBuyer, "0"},
		{testBuyer, "-1"},
		{testBuyer, "1e80"},
		{testBuyer, "1e30000000"},
	}
	for _, args := range bad {
		_, _, err := svc.CreateInvoice(ctx, args.buyer, args.qty, 0)
		assert.ErrorIs(t, err, ErrBadArguments, args)
	}
	_, _, err = svc.CreateInvoice(ctx, testBuyer, "10", -1)
	assert.ErrorIs(t, err, ErrBadArguments)
	assert.Len(t, chain.params, 1)
}

func TestFindInvoice(t *testing.T) {
	svc := newTestService(newStubChain())
	_, err := svc.FindInvoice(context.Background(), "")
	assert.ErrorIs(t, err, ErrBadArguments)
	_, err = svc.FindInvoice(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestVerifyInvoicePayment(t *testing.T) {
	chain := newStubChain()
	svc := newTestService(chain)
	ctx := context.Background()
	delivered := make(chan models.Invoice, 1)
	_, err := svc.InvoicePubSub.Subscribe(tcommon.InvoiceStateDelivered, delivered)
	assert.NoError(t, err)

	invoice, _, err := svc.CreateInvoice(ctx, testBuyer, "10", 0)
	assert.NoError(t, err)
	txHash := common.HexToHash("0xabc")
	chain.addReceipt(txHash, types.ReceiptStatusSuccessful, 5, transferLog(testPayToken, testPayer, testReceiver, 5000000, 0))

	paid, deliveredTx, err := svc.VerifyInvoicePayment(ctx, invoice.ID, txHash.Hex())
	assert.NoError(t, err)
	assert.NotEmpty(t, deliveredTx)
	assert.True(t, paid.Paid)
	assert.Equal(t, tcommon.InvoiceStateDelivered, paid.State)
	assert.Equal(t, 1, chain.transfers)

	select {
	case published := <-delivered:
		assert.Equal(t, invoice.ID, published.ID)
	case <-time.After(time.Second):
		t.Fatal("delivered invoice was not published")
	}

	_, _, err = svc.VerifyInvoicePayment(ctx, invoice.ID, txHash.Hex())
	assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)
	assert.Equal(t, 1, chain.transfers)
}

func TestVerifyInvoicePaymentDeliveryDisabled(t *testing.T) {
	chain := newStubChain()
	chain.signer = false
	svc := newTestService(chain)
	ctx := context.Background()

	invoice, _, err := svc.CreateInvoice(ctx, testBuyer, "10", 0)
	assert.NoError(t, err)
	txHash := common.HexToHash("0xabc")
	chain.addReceipt(txHash, types.ReceiptStatusSuccessful, 5, transferLog(testPayToken, testPayer, testReceiver, 5000000, 0))

	_, _, err = svc.VerifyInvoicePayment(ctx, invoice.ID, txHash.Hex())
	assert.ErrorIs(t, err, ErrDeliveryDisabled)
	stored, _ := svc.FindInvoice(ctx, invoice.ID)
	assert.False(t, stored.Paid)
}

func TestCheckConfirmations(t *testing.T) {
	chain := newStubChain()
	svc := newTestService(chain)
	ctx := context.Background()

	mined := common.HexToHash("0x01")
	chain.addReceipt(mined, types.ReceiptStatusSuccessful, 8)
	assert.NoError(t, svc.checkConfirmations(ctx, mined, 3))
	assert.ErrorIs(t, svc.checkConfirmations(ctx, mined, 4), errNotConfirmed)

	reverted := common.HexToHash("0x02")
	chain.addReceipt(reverted, types.ReceiptStatusFailed, 8)
	err := svc.checkConfirmations(ctx, reverted, 1)
	assert.True(t, errors.Is(err, errTransferReverted))
}

func TestDeliverTimesOut(t *testing.T) {
	chain := newStubChain()
	svc := newTestService(chain)
	svc.Config.DeliveryConfirmations = 100

	txHash, err := svc.Deliver(context.Background(), testSale, common.HexToAddress(testBuyer), common.Big1)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.NotEmpty(t, txHash)
}
