package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	errNotConfirmed     = errors.New("not enough confirmations yet")
	errTransferReverted = errors.New("transfer reverted")
)

// Deliver sends amountOut of token from the custodial account to buyer and
// waits until the transfer is DeliveryConfirmations blocks deep. The returned
// hash is set whenever the transfer was submitted, also on failure.
func (svc *TokenhubService) Deliver(ctx context.Context, token, buyer common.Address, amountOut *big.Int) (string, error) {
	if !svc.DeliveryEnabled() {
		return "", ErrDeliveryDisabled
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return "", fmt.Errorf("%w: delivery amount must be positive", ErrBadArguments)
	}

	txHash, err := svc.ChainClient.TransferToken(ctx, token, buyer, amountOut)
	if err != nil {
		return "", fmt.Errorf("%w: submitting transfer to %s: %v", ErrDeliveryFailed, buyer.Hex(), err)
	}
	svc.Logger.Infof("Submitted delivery of %s %s to %s: tx %s", amountOut, token.Hex(), buyer.Hex(), txHash.Hex())

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(svc.Config.DeliveryTimeout)*time.Second)
	defer cancel()
	err = svc.awaitConfirmations(waitCtx, txHash, svc.Config.DeliveryConfirmations)
	if err != nil {
		return txHash.Hex(), fmt.Errorf("%w: transfer %s: %v", ErrDeliveryFailed, txHash.Hex(), err)
	}
	return txHash.Hex(), nil
}

func (svc *TokenhubService) awaitConfirmations(ctx context.Context, txHash common.Hash, confirmations uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	// bounded by ctx instead
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		return svc.checkConfirmations(ctx, txHash, confirmations)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		svc.Logger.Debugf("Waiting for %s: %v, next check in %s", txHash.Hex(), err, next)
	})
}

// checkConfirmations returns nil once txHash is mined successfully and buried
// under enough blocks. A reverted transfer is a permanent error.
func (svc *TokenhubService) checkConfirmations(ctx context.Context, txHash common.Hash, confirmations uint64) error {
	receipt, err := svc.ChainClient.TransactionReceipt(ctx, txHash)
	if err != nil {
		return err
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return errNotConfirmed
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return backoff.Permanent(errTransferReverted)
	}
	head, err := svc.ChainClient.BlockNumber(ctx)
	if err != nil {
		return err
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined || head-mined+1 < confirmations {
		return errNotConfirmed
	}
	return nil
}
