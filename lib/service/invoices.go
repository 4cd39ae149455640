package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	tcommon "github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PayInstructions struct {
	Receiver            string
	Token               string
	AmountRequired      string
	AmountRequiredHuman string
	Note                string
	PaymentURI          string
}

// FindInvoice loads the invoice with the given id.
func (svc *TokenhubService) FindInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing invoice id", ErrBadArguments)
	}
	return svc.Store.GetInvoice(ctx, id)
}

// CreateInvoice prices qty of the sale token in the payment token and stores
// the invoice. The quoted amount is frozen into the invoice, later price moves
// never change what the buyer has to pay.
func (svc *TokenhubService) CreateInvoice(ctx context.Context, buyer, qty string, fee int64) (*models.Invoice, *PayInstructions, error) {
	buyer = strings.TrimSpace(buyer)
	qty = strings.TrimSpace(qty)
	if buyer == "" || qty == "" {
		return nil, nil, fmt.Errorf("%w: missing qty or buyer", ErrBadArguments)
	}
	if !common.IsHexAddress(buyer) {
		return nil, nil, fmt.Errorf("%w: invalid buyer address %q", ErrBadArguments, buyer)
	}
	quantity, err := decimal.NewFromString(qty)
	if err != nil || !quantity.IsPositive() {
		return nil, nil, fmt.Errorf("%w: invalid qty %q", ErrBadArguments, qty)
	}
	if err := CheckQuantity(quantity); err != nil {
		return nil, nil, err
	}
	if fee == 0 {
		fee = svc.Config.DefaultFeeTier
	}
	if fee < 0 || fee > tcommon.MaxFeeTier {
		return nil, nil, fmt.Errorf("%w: fee tier %d out of range", ErrBadArguments, fee)
	}

	paymentToken := common.HexToAddress(svc.Config.PaymentTokenAddress)
	saleToken := common.HexToAddress(svc.Config.SaleTokenAddress)
	receiver := common.HexToAddress(svc.Config.ReceiverAddress)

	decimals, err := svc.ChainClient.TokenDecimals(ctx, saleToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading decimals of %s: %v", ErrChainUnavailable, saleToken.Hex(), err)
	}
	amountOut, err := ScaleAmount(quantity, decimals)
	if err != nil {
		return nil, nil, err
	}
	requiredInput, err := svc.QuoteInputForExactOutput(ctx, paymentToken, saleToken, fee, amountOut)
	if err != nil {
		return nil, nil, err
	}

	invoice := &models.Invoice{
		ID:                  uuid.NewString(),
		Buyer:               lowerHex(common.HexToAddress(buyer)),
		Quantity:            qty,
		AmountOut:           amountOut.String(),
		RequiredInputAmount: requiredInput.String(),
		InputToken:          lowerHex(paymentToken),
		OutputToken:         lowerHex(saleToken),
		Fee:                 fee,
		Receiver:            lowerHex(receiver),
		State:               tcommon.InvoiceStateCreated,
		CreatedAt:           now(),
	}
	// nothing is stored unless the quote succeeded
	if err := svc.Store.PutInvoice(ctx, invoice); err != nil {
		return nil, nil, err
	}
	svc.Logger.Infof("Created invoice %s: buyer:%s qty:%s amount_out:%s required_input:%s fee:%d",
		invoice.ID, invoice.Buyer, invoice.Quantity, invoice.AmountOut, invoice.RequiredInputAmount, invoice.Fee)

	instructions, err := svc.PayInstructionsFor(invoice)
	if err != nil {
		return nil, nil, err
	}
	return invoice, instructions, nil
}

// PayInstructionsFor tells the buyer what to send where to pay invoice.
func (svc *TokenhubService) PayInstructionsFor(invoice *models.Invoice) (*PayInstructions, error) {
	required, err := parseAmount(invoice.RequiredInputAmount)
	if err != nil {
		return nil, err
	}
	return &PayInstructions{
		Receiver:            invoice.Receiver,
		Token:               invoice.InputToken,
		AmountRequired:      invoice.RequiredInputAmount,
		AmountRequiredHuman: FormatAmount(required, svc.Config.PaymentTokenDecimals),
		Note:                svc.Config.PaymentNote,
		PaymentURI:          PaymentURI(svc.ChainClient.ChainID(), invoice.InputToken, invoice.Receiver, invoice.RequiredInputAmount),
	}, nil
}

// PaymentURI builds an EIP-681 token transfer request wallets can open directly.
func PaymentURI(chainID *big.Int, token, receiver, amount string) string {
	target := token
	if chainID != nil {
		target = fmt.Sprintf("%s@%s", token, chainID)
	}
	return fmt.Sprintf("ethereum:%s/transfer?address=%s&uint256=%s", target, receiver, amount)
}

// VerifyInvoicePayment checks txHash against the invoice's frozen price, marks
// the invoice paid and delivers the sale token. The paid transition is a
// conditional write, so concurrent calls for one invoice deliver at most once.
// A failing verification leaves the invoice untouched and can be retried.
func (svc *TokenhubService) VerifyInvoicePayment(ctx context.Context, invoiceID, txHash string) (*models.Invoice, string, error) {
	if invoiceID == "" || txHash == "" {
		return nil, "", fmt.Errorf("%w: missing txHash or invoiceId", ErrBadArguments)
	}
	if !IsTxHash(txHash) {
		return nil, "", fmt.Errorf("%w: invalid txHash %q", ErrBadArguments, txHash)
	}
	invoice, err := svc.Store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if !svc.DeliveryEnabled() {
		return invoice, "", fmt.Errorf("%w: no signing key configured", ErrDeliveryDisabled)
	}
	if invoice.Paid {
		return invoice, invoice.DeliveryTx, fmt.Errorf("%w: %s", ErrInvoiceAlreadyPaid, invoice.ID)
	}

	minimum, err := parseAmount(invoice.RequiredInputAmount)
	if err != nil {
		return invoice, "", err
	}
	hash := common.HexToHash(txHash)
	transfer, err := svc.VerifyTransfer(ctx, hash, common.HexToAddress(invoice.Receiver), common.HexToAddress(invoice.InputToken), minimum)
	if err != nil {
		return invoice, "", err
	}

	paidAt := now()
	err = svc.Store.MarkInvoicePaid(ctx, invoice.ID, hash.Hex(), paidAt)
	if err != nil {
		return invoice, "", err
	}
	invoice.Paid = true
	invoice.State = tcommon.InvoiceStatePaid
	invoice.PaidTx = hash.Hex()
	invoice.PaidAt = bun.NullTime{Time: paidAt}
	svc.Logger.Infof("Invoice %s paid: tx:%s from:%s value:%s log_index:%d",
		invoice.ID, invoice.PaidTx, transfer.From.Hex(), transfer.Value, transfer.LogIndex)
	svc.InvoicePubSub.Publish(tcommon.InvoiceStatePaid, *invoice)

	return svc.deliverInvoice(ctx, invoice)
}

// RedeliverInvoice retries the delivery of a paid invoice whose delivery
// failed. When the earlier delivery transfer did confirm after all it is
// adopted instead of sending again. force skips waiting for an earlier
// transfer that is still unknown to the chain.
func (svc *TokenhubService) RedeliverInvoice(ctx context.Context, invoiceID string, force bool) (*models.Invoice, string, error) {
	invoice, err := svc.FindInvoice(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if !svc.DeliveryEnabled() {
		return invoice, "", fmt.Errorf("%w: no signing key configured", ErrDeliveryDisabled)
	}
	switch {
	case !invoice.Paid:
		return invoice, "", fmt.Errorf("%w: %s", ErrInvoiceNotPaid, invoice.ID)
	case invoice.State == tcommon.InvoiceStateDelivered:
		return invoice, invoice.DeliveryTx, fmt.Errorf("%w: %s", ErrInvoiceAlreadyDelivered, invoice.ID)
	case invoice.DeliveryError == "":
		return invoice, invoice.DeliveryTx, fmt.Errorf("%w: %s", ErrDeliveryInProgress, invoice.ID)
	}

	if invoice.DeliveryTx != "" && !force {
		err := svc.checkConfirmations(ctx, common.HexToHash(invoice.DeliveryTx), svc.Config.DeliveryConfirmations)
		switch {
		case err == nil:
			svc.Logger.Infof("Earlier delivery %s of invoice %s confirmed, adopting it", invoice.DeliveryTx, invoice.ID)
			return svc.markDelivered(ctx, invoice, invoice.DeliveryTx)
		case errors.Is(err, errTransferReverted):
			svc.Logger.Infof("Earlier delivery %s of invoice %s reverted", invoice.DeliveryTx, invoice.ID)
		default:
			return invoice, invoice.DeliveryTx, fmt.Errorf("%w: earlier transfer %s not confirmed: %v", ErrDeliveryInProgress, invoice.DeliveryTx, err)
		}
	}

	claimed, err := svc.Store.ClaimRedelivery(ctx, invoice.ID)
	if err != nil {
		return invoice, "", err
	}
	if !claimed {
		return invoice, invoice.DeliveryTx, fmt.Errorf("%w: %s", ErrDeliveryInProgress, invoice.ID)
	}
	invoice.DeliveryError = ""
	svc.Logger.Infof("Redelivering invoice %s", invoice.ID)
	return svc.deliverInvoice(ctx, invoice)
}

func (svc *TokenhubService) deliverInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, string, error) {
	amountOut, err := parseAmount(invoice.AmountOut)
	if err != nil {
		return invoice, "", err
	}
	txHash, err := svc.Deliver(ctx, common.HexToAddress(invoice.OutputToken), common.HexToAddress(invoice.Buyer), amountOut)
	if err != nil {
		svc.Logger.Errorf("Delivery failed for paid invoice %s: %v", invoice.ID, err)
		// the request may be gone, the failure still has to be recorded
		markErr := svc.Store.MarkInvoiceDeliveryFailed(context.WithoutCancel(ctx), invoice.ID, txHash, err.Error())
		if markErr != nil {
			svc.Logger.Errorf("Could not record delivery failure for invoice %s: %v", invoice.ID, markErr)
		}
		if txHash != "" {
			invoice.DeliveryTx = txHash
		}
		invoice.DeliveryError = err.Error()
		return invoice, txHash, err
	}
	return svc.markDelivered(ctx, invoice, txHash)
}

func (svc *TokenhubService) markDelivered(ctx context.Context, invoice *models.Invoice, txHash string) (*models.Invoice, string, error) {
	deliveredAt := now()
	err := svc.Store.MarkInvoiceDelivered(context.WithoutCancel(ctx), invoice.ID, txHash, deliveredAt)
	if err != nil {
		// the tokens are out, the invoice stays paid without an error so it is never redelivered
		svc.Logger.Errorf("Could not record delivery %s for invoice %s: %v", txHash, invoice.ID, err)
	}
	invoice.State = tcommon.InvoiceStateDelivered
	invoice.DeliveryTx = txHash
	invoice.DeliveredAt = bun.NullTime{Time: deliveredAt}
	invoice.DeliveryError = ""
	svc.Logger.Infof("Invoice %s delivered: tx:%s", invoice.ID, txHash)
	svc.InvoicePubSub.Publish(tcommon.InvoiceStateDelivered, *invoice)
	return invoice, txHash, nil
}

// IsTxHash reports whether s is a 0x-prefixed 32 byte hex hash.
func IsTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}

func lowerHex(address common.Address) string {
	return strings.ToLower(address.Hex())
}

// stored timestamps keep microseconds
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
