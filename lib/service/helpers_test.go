package service

import (
	"context"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	tcommon "github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/evm"
	"github.com/ziflex/lecho/v3"
)

var (
	testReceiver = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testPayToken = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	testSale     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPayer    = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type stubChain struct {
	mu        sync.Mutex
	quote     *evm.QuoteExactOutputSingleResult
	quoteErr  error
	params    []evm.QuoteExactOutputSingleParams
	receipts  map[common.Hash]*types.Receipt
	head      uint64
	signer    bool
	transfers int
}

func newStubChain() *stubChain {
	return &stubChain{
		quote:    &evm.QuoteExactOutputSingleResult{AmountIn: big.NewInt(5000000)},
		receipts: map[common.Hash]*types.Receipt{},
		head:     10,
		signer:   true,
	}
}

func (s *stubChain) ChainID() *big.Int { return big.NewInt(8453) }

func (s *stubChain) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	if token == testPayToken {
		return 6, nil
	}
	return 18, nil
}

func (s *stubChain) QuoteExactOutputSingle(ctx context.Context, params evm.QuoteExactOutputSingleParams) (*evm.QuoteExactOutputSingleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = append(s.params, params)
	return s.quote, s.quoteErr
}

func (s *stubChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, ok := s.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (s *stubChain) BlockNumber(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *stubChain) TransferToken(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signer {
		return common.Hash{}, evm.ErrNoSigner
	}
	s.transfers++
	hash := common.BigToHash(big.NewInt(int64(1000 + s.transfers)))
	s.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: new(big.Int).SetUint64(s.head)}
	return hash, nil
}

func (s *stubChain) SignerAddress() (common.Address, bool) {
	return common.HexToAddress("0x9999999999999999999999999999999999999999"), s.signer
}

func (s *stubChain) addReceipt(hash common.Hash, status uint64, block uint64, logs ...*types.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[hash] = &types.Receipt{Status: status, BlockNumber: new(big.Int).SetUint64(block), Logs: logs}
}

// memStore keeps invoices in a map, enough for the service's own logic.
type memStore struct {
	mu       sync.Mutex
	invoices map[string]models.Invoice
}

func newMemStore() *memStore {
	return &memStore{invoices: map[string]models.Invoice{}}
}

func (m *memStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return &invoice, nil
}

func (m *memStore) PutInvoice(ctx context.Context, invoice *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[invoice.ID] = *invoice
	return nil
}

func (m *memStore) MarkInvoicePaid(ctx context.Context, id, txHash string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	if invoice.Paid {
		return ErrInvoiceAlreadyPaid
	}
	for _, other := range m.invoices {
		if other.PaidTx == txHash {
			return ErrPaymentAlreadyUsed
		}
	}
	invoice.Paid = true
	invoice.State = tcommon.InvoiceStatePaid
	invoice.PaidTx = txHash
	m.invoices[id] = invoice
	return nil
}

func (m *memStore) MarkInvoiceDelivered(ctx context.Context, id, txHash string, deliveredAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice := m.invoices[id]
	invoice.State = tcommon.InvoiceStateDelivered
	invoice.DeliveryTx = txHash
	invoice.DeliveryError = ""
	m.invoices[id] = invoice
	return nil
}

func (m *memStore) MarkInvoiceDeliveryFailed(ctx context.Context, id, txHash, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice := m.invoices[id]
	if txHash != "" {
		invoice.DeliveryTx = txHash
	}
	invoice.DeliveryError = reason
	m.invoices[id] = invoice
	return nil
}

func (m *memStore) ClaimRedelivery(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invoice := m.invoices[id]
	if invoice.DeliveryError == "" || invoice.State != tcommon.InvoiceStatePaid {
		return false, nil
	}
	invoice.DeliveryError = ""
	m.invoices[id] = invoice
	return true, nil
}

func newTestService(chain *stubChain) *TokenhubService {
	return &TokenhubService{
		Config: &Config{
			SaleConfig: SaleConfig{
				ReceiverAddress:       testReceiver.Hex(),
				PaymentTokenAddress:   testPayToken.Hex(),
				PaymentTokenDecimals:  6,
				SaleTokenAddress:      testSale.Hex(),
				DefaultFeeTier:        tcommon.DefaultFeeTier,
				DeliveryConfirmations: 1,
				DeliveryTimeout:       1,
			},
		},
		Store:         newMemStore(),
		ChainClient:   chain,
		Logger:        lecho.New(io.Discard),
		InvoicePubSub: NewPubsub(),
	}
}

func transferLog(token, from, to common.Address, value int64, index uint) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			evm.TransferEventID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:  common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
		Index: index,
	}
}
