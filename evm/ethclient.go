package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrNoSigner = errors.New("no signing key configured")

// EthClient talks JSON-RPC to an EVM node. It signs locally with the
// configured custodial key, the node never sees the key.
type EthClient struct {
	client     *ethclient.Client
	chainID    *big.Int
	quoter     *bind.BoundContract
	transactor *bind.TransactOpts
	// bind picks the pending nonce per call, transfers must not interleave
	sendMu sync.Mutex
}

func NewEthClient(ctx context.Context, c *Config) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, c.RPCUrl)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not fetch chain id from %s: %w", c.RPCUrl, err)
	}
	result := &EthClient{
		client:  client,
		chainID: chainID,
		quoter:  bind.NewBoundContract(common.HexToAddress(c.QuoterAddress), QuoterV2ABI, client, client, client),
	}
	if c.SignerPrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.SignerPrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid SIGNER_PRIVATE_KEY: %w", err)
		}
		result.transactor, err = bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			client.Close()
			return nil, err
		}
	}
	return result, nil
}

func (c *EthClient) Close() {
	c.client.Close()
}

func (c *EthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *EthClient) SignerAddress() (common.Address, bool) {
	if c.transactor == nil {
		return common.Address{}, false
	}
	return c.transactor.From, true
}

func (c *EthClient) erc20(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, ERC20ABI, c.client, c.client, c.client)
}

func (c *EthClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	var out []interface{}
	err := c.erc20(token).Call(&bind.CallOpts{Context: ctx}, &out, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (c *EthClient) QuoteExactOutputSingle(ctx context.Context, params QuoteExactOutputSingleParams) (*QuoteExactOutputSingleResult, error) {
	var out []interface{}
	err := c.quoter.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactOutputSingle", params)
	if err != nil {
		return nil, err
	}
	return &QuoteExactOutputSingleResult{
		AmountIn:                *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		SqrtPriceX96After:       *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		InitializedTicksCrossed: *abi.ConvertType(out[2], new(uint32)).(*uint32),
		GasEstimate:             *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
	}, nil
}

func (c *EthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

func (c *EthClient) TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	if c.transactor == nil {
		return common.Hash{}, ErrNoSigner
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	opts := *c.transactor
	opts.Context = ctx
	tx, err := c.erc20(token).Transact(&opts, "transfer", to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

var _ ChainClientWrapper = (*EthClient)(nil)
