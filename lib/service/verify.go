package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/getAlby/tokenhub.go/evm"
)

type Transfer struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	LogIndex uint
}

// DecodeTransfer decodes log as an ERC-20 Transfer(from, to, value).
// ok is false for any other event shape, including ERC-721 transfers which
// share the topic but index the token id.
func DecodeTransfer(log *types.Log) (transfer Transfer, ok bool) {
	if len(log.Topics) != 3 || log.Topics[0] != evm.TransferEventID {
		return Transfer{}, false
	}
	values, err := evm.ERC20ABI.Unpack("Transfer", log.Data)
	if err != nil || len(values) != 1 {
		return Transfer{}, false
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return Transfer{}, false
	}
	return Transfer{
		From:     common.BytesToAddress(log.Topics[1].Bytes()),
		To:       common.BytesToAddress(log.Topics[2].Bytes()),
		Value:    value,
		LogIndex: log.Index,
	}, true
}

// FindQualifyingTransfer returns the first transfer emitted by token that pays
// at least minimum to receiver. Transfers are never summed.
func FindQualifyingTransfer(logs []*types.Log, receiver, token common.Address, minimum *big.Int) (Transfer, bool) {
	for _, log := range logs {
		if log == nil || log.Address != token {
			continue
		}
		transfer, ok := DecodeTransfer(log)
		if !ok {
			continue
		}
		if transfer.To == receiver && transfer.Value.Cmp(minimum) >= 0 {
			return transfer, true
		}
	}
	return Transfer{}, false
}

// VerifyTransfer confirms from the settled receipt of txHash that it moved at
// least minimum of token to receiver. Nothing the client asserts is trusted.
func (svc *TokenhubService) VerifyTransfer(ctx context.Context, txHash common.Hash, receiver, token common.Address, minimum *big.Int) (Transfer, error) {
	receipt, err := svc.ChainClient.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && receipt == nil) {
		return Transfer{}, fmt.Errorf("%w: %s", ErrPaymentPending, txHash.Hex())
	}
	if err != nil {
		return Transfer{}, fmt.Errorf("%w: fetching receipt %s: %v", ErrChainUnavailable, txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Transfer{}, fmt.Errorf("%w: transaction %s reverted", ErrPaymentNotVerified, txHash.Hex())
	}
	transfer, ok := FindQualifyingTransfer(receipt.Logs, receiver, token, minimum)
	if !ok {
		return Transfer{}, fmt.Errorf("%w: no transfer of at least %s to %s in %s", ErrPaymentNotVerified, minimum, receiver.Hex(), txHash.Hex())
	}
	return transfer, nil
}
