package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// QuoterV2 reverts internally to compute the quote, so it is declared
// nonpayable but must only ever be eth_call'ed.
const quoterV2ABIJSON = `[
	{"inputs":[{"components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"fee","type":"uint24"},
		{"name":"sqrtPriceLimitX96","type":"uint160"}
	],"name":"params","type":"tuple"}],
	"name":"quoteExactOutputSingle",
	"outputs":[
		{"name":"amountIn","type":"uint256"},
		{"name":"sqrtPriceX96After","type":"uint160"},
		{"name":"initializedTicksCrossed","type":"uint32"},
		{"name":"gasEstimate","type":"uint256"}
	],
	"stateMutability":"nonpayable","type":"function"}
]`

var (
	ERC20ABI    = mustParseABI(erc20ABIJSON)
	QuoterV2ABI = mustParseABI(quoterV2ABIJSON)

	// TransferEventID is topic 0 of every ERC-20 Transfer log.
	TransferEventID = ERC20ABI.Events["Transfer"].ID
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}
