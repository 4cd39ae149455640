package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClientWrapper is everything the gateway needs from the chain.
// TransactionReceipt returns ethereum.NotFound while a transaction is not mined.
type ChainClientWrapper interface {
	ChainID() *big.Int
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	QuoteExactOutputSingle(ctx context.Context, params QuoteExactOutputSingleParams) (*QuoteExactOutputSingleResult, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	// TransferToken fails with ErrNoSigner when no signing key is configured.
	TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error)
	SignerAddress() (common.Address, bool)
}

// QuoteExactOutputSingleParams mirrors the QuoterV2 struct of the same name,
// field names must match the ABI component names.
type QuoteExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type QuoteExactOutputSingleResult struct {
	AmountIn                *big.Int
	SqrtPriceX96After       *big.Int
	InitializedTicksCrossed uint32
	GasEstimate             *big.Int
}
