package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	tcommon "github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/evm"
)

// QuoteInputForExactOutput asks the quoter how much tokenIn a swap would
// consume to produce exactly amountOut of tokenOut in the given fee tier pool.
// A zero fee selects the configured default tier. Quotes are never cached.
func (svc *TokenhubService) QuoteInputForExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, fee int64, amountOut *big.Int) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount out must be positive", ErrBadArguments)
	}
	if fee == 0 {
		fee = svc.Config.DefaultFeeTier
	}
	if fee < 0 || fee > tcommon.MaxFeeTier {
		return nil, fmt.Errorf("%w: fee tier %d out of range", ErrBadArguments, fee)
	}

	result, err := svc.ChainClient.QuoteExactOutputSingle(ctx, evm.QuoteExactOutputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Amount:            amountOut,
		Fee:               big.NewInt(fee),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if result.AmountIn == nil || result.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: quoter returned no input amount", ErrQuoteUnavailable)
	}
	svc.Logger.Debugf("Quoted %s %s for %s %s (fee:%d sqrtPriceX96After:%s ticksCrossed:%d)",
		result.AmountIn, tokenIn.Hex(), amountOut, tokenOut.Hex(), fee, result.SqrtPriceX96After, result.InitializedTicksCrossed)
	return result.AmountIn, nil
}
