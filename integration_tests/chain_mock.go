package integration_tests

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/getAlby/tokenhub.go/evm"
)

var errTokenUnknown = errors.New("execution reverted")

type MockTransfer struct {
	TxHash common.Hash
	Token  common.Address
	To     common.Address
	Amount *big.Int
}

// MockChain is an in-memory chain. Payments are receipts added by the test,
// deliveries are recorded and mined right away unless held back.
type MockChain struct {
	mu sync.Mutex

	chainID   *big.Int
	decimals  map[common.Address]uint8
	head      uint64
	receipts  map[common.Hash]*types.Receipt
	signer    *common.Address
	nonce     uint64
	transfers []MockTransfer

	quoteAmountIn *big.Int
	quoteErr      error
	quoteCalls    int
	lastQuote     evm.QuoteExactOutputSingleParams

	transferErr    error
	holdDeliveries bool
	revertDelivery bool
}

func NewMockChain() *MockChain {
	signer := common.HexToAddress("0x9999999999999999999999999999999999999999")
	return &MockChain{
		chainID:       big.NewInt(8453),
		decimals:      map[common.Address]uint8{},
		head:          100,
		receipts:      map[common.Hash]*types.Receipt{},
		signer:        &signer,
		quoteAmountIn: big.NewInt(5000000),
	}
}

func (chain *MockChain) WithoutSigner() *MockChain {
	chain.signer = nil
	return chain
}

func (chain *MockChain) SetDecimals(token common.Address, decimals uint8) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.decimals[token] = decimals
}

func (chain *MockChain) SetQuote(amountIn int64, err error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.quoteAmountIn = big.NewInt(amountIn)
	chain.quoteErr = err
}

func (chain *MockChain) QuoteCalls() int {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	return chain.quoteCalls
}

func (chain *MockChain) LastQuote() evm.QuoteExactOutputSingleParams {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	return chain.lastQuote
}

func (chain *MockChain) SetTransferErr(err error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.transferErr = err
}

func (chain *MockChain) SetHoldDeliveries(hold bool) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.holdDeliveries = hold
}

func (chain *MockChain) SetRevertDeliveries(revert bool) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.revertDelivery = revert
}

// AddReceipt makes txHash known with the given logs, mined in a new block.
func (chain *MockChain) AddReceipt(txHash common.Hash, status uint64, logs ...*types.Log) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.head++
	for _, log := range logs {
		log.TxHash = txHash
	}
	chain.receipts[txHash] = &types.Receipt{
		Status:      status,
		TxHash:      txHash,
		Logs:        logs,
		BlockNumber: new(big.Int).SetUint64(chain.head),
	}
}

// MineDeliveries mines every delivery that was held back.
func (chain *MockChain) MineDeliveries() {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.head++
	for _, transfer := range chain.transfers {
		if _, ok := chain.receipts[transfer.TxHash]; !ok {
			chain.receipts[transfer.TxHash] = chain.deliveryReceipt(transfer)
		}
	}
}

func (chain *MockChain) Transfers() []MockTransfer {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	return append([]MockTransfer(nil), chain.transfers...)
}

func (chain *MockChain) ChainID() *big.Int {
	return chain.chainID
}

func (chain *MockChain) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	decimals, ok := chain.decimals[token]
	if !ok {
		return 0, errTokenUnknown
	}
	return decimals, nil
}

func (chain *MockChain) QuoteExactOutputSingle(ctx context.Context, params evm.QuoteExactOutputSingleParams) (*evm.QuoteExactOutputSingleResult, error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	chain.quoteCalls++
	chain.lastQuote = params
	if chain.quoteErr != nil {
		return nil, chain.quoteErr
	}
	return &evm.QuoteExactOutputSingleResult{
		AmountIn:                new(big.Int).Set(chain.quoteAmountIn),
		SqrtPriceX96After:       big.NewInt(1),
		InitializedTicksCrossed: 1,
		GasEstimate:             big.NewInt(80000),
	}, nil
}

func (chain *MockChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	receipt, ok := chain.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (chain *MockChain) BlockNumber(ctx context.Context) (uint64, error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	return chain.head, nil
}

func (chain *MockChain) TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	chain.mu.Lock()
	defer chain.mu.Unlock()
	if chain.signer == nil {
		return common.Hash{}, evm.ErrNoSigner
	}
	if chain.transferErr != nil {
		return common.Hash{}, chain.transferErr
	}
	chain.nonce++
	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, chain.nonce)
	transfer := MockTransfer{
		TxHash: crypto.Keccak256Hash([]byte("delivery"), nonce),
		Token:  token,
		To:     to,
		Amount: new(big.Int).Set(amount),
	}
	chain.transfers = append(chain.transfers, transfer)
	if !chain.holdDeliveries {
		chain.head++
		chain.receipts[transfer.TxHash] = chain.deliveryReceipt(transfer)
	}
	return transfer.TxHash, nil
}

func (chain *MockChain) SignerAddress() (common.Address, bool) {
	if chain.signer == nil {
		return common.Address{}, false
	}
	return *chain.signer, true
}

func (chain *MockChain) deliveryReceipt(transfer MockTransfer) *types.Receipt {
	status := types.ReceiptStatusSuccessful
	if chain.revertDelivery {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{
		Status:      status,
		TxHash:      transfer.TxHash,
		BlockNumber: new(big.Int).SetUint64(chain.head),
		Logs:        []*types.Log{TransferLog(transfer.Token, *chain.signer, transfer.To, transfer.Amount, 0)},
	}
}

// TransferLog builds the log an ERC-20 Transfer event leaves in a receipt.
func TransferLog(token, from, to common.Address, value *big.Int, index uint) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			evm.TransferEventID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:  common.LeftPadBytes(value.Bytes(), 32),
		Index: index,
	}
}

var _ evm.ChainClientWrapper = (*MockChain)(nil)
