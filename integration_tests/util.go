package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/getAlby/tokenhub.go/db"
	"github.com/getAlby/tokenhub.go/db/migrations"
	"github.com/getAlby/tokenhub.go/lib"
	"github.com/getAlby/tokenhub.go/lib/responses"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/getAlby/tokenhub.go/lib/tokens"
	"github.com/getAlby/tokenhub.go/lib/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun/migrate"
)

const (
	adminToken = "admin-secret"
	buyer      = "0x000000000000000000000000000000000000dEaD"
)

var (
	receiverAddress = common.HexToAddress("0x2222222222222222222222222222222222222222")
	paymentToken    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	saleToken       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	payer           = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type TestSuite struct {
	suite.Suite
	echo *echo.Echo
}

func testConfig() *service.Config {
	return &service.Config{
		// every service gets its own in-memory database
		DatabaseUri:      fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString()),
		DefaultRateLimit: 1000,
		StrictRateLimit:  1000,
		BurstRateLimit:   1000,
		AdminToken:       adminToken,
		SaleConfig: service.SaleConfig{
			ReceiverAddress:       receiverAddress.Hex(),
			PaymentTokenAddress:   paymentToken.Hex(),
			PaymentTokenDecimals:  6,
			SaleTokenAddress:      saleToken.Hex(),
			DefaultFeeTier:        3000,
			DeliveryConfirmations: 1,
			DeliveryTimeout:       1,
			PaymentNote:           "Send USDC (on Base) to receiver then call /api/verify-payment",
		},
	}
}

func TokenhubTestServiceInit(chain *MockChain, configure ...func(c *service.Config)) (svc *service.TokenhubService, err error) {
	c := testConfig()
	for _, f := range configure {
		f(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	chain.SetDecimals(saleToken, 18)
	chain.SetDecimals(paymentToken, 6)

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	_, err = migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	logger := lib.Logger(c.LogFilePath)
	svc = &service.TokenhubService{
		Config:        c,
		Store:         db.NewInvoiceStore(dbConn),
		ChainClient:   chain,
		Logger:        logger,
		InvoicePubSub: service.NewPubsub(),
	}
	return svc, nil
}

func newTestEcho(svc *service.TokenhubService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = lib.NewCustomValidator()

	logMw := transport.CreateLoggingMiddleware(svc.Logger)
	rateLimitMw := transport.CreateRateLimitMiddleware(svc.Config.StrictRateLimit, svc.Config.BurstRateLimit)
	transport.RegisterLegacyEndpoints(svc, e, rateLimitMw, logMw)
	transport.RegisterV2Endpoints(svc, e, rateLimitMw, tokens.AdminTokenMiddleware(svc.Config.AdminToken), logMw)
	return e
}

func clearTable(svc *service.TokenhubService, tableName string) error {
	store := svc.Store.(*db.InvoiceStore)
	_, err := store.DB.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	return err
}

func countInvoices(svc *service.TokenhubService) (int, error) {
	store := svc.Store.(*db.InvoiceStore)
	return store.DB.NewSelect().Table("invoices").Count(context.Background())
}

// payInvoice puts a settled payment of value to receiver on chain and returns its hash.
func payInvoice(chain *MockChain, to common.Address, value int64) string {
	txHash := randomTxHash()
	chain.AddReceipt(txHash, types.ReceiptStatusSuccessful,
		TransferLog(paymentToken, payer, to, big.NewInt(value), 3),
	)
	return txHash.Hex()
}

func randomTxHash() common.Hash {
	return crypto.Keccak256Hash([]byte(uuid.NewString()))
}

func doJSON(e *echo.Echo, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func (suite *TestSuite) createInvoiceReq(qty interface{}) *ExpectedCreateInvoiceResponseBody {
	rec := doJSON(suite.echo, http.MethodPost, "/v2/invoices", map[string]interface{}{
		"buyer": buyer,
		"qty":   qty,
	})
	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	body := &ExpectedCreateInvoiceResponseBody{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(body))
	return body
}

func (suite *TestSuite) verifyReq(invoiceID, txHash string) *httptest.ResponseRecorder {
	return doJSON(suite.echo, http.MethodPost, fmt.Sprintf("/v2/invoices/%s/verify", invoiceID), map[string]string{
		"txHash": txHash,
	})
}

func (suite *TestSuite) getInvoiceReq(invoiceID string) *httptest.ResponseRecorder {
	return doJSON(suite.echo, http.MethodGet, "/v2/invoices/"+invoiceID, nil)
}

func decodeError(suite *TestSuite, rec *httptest.ResponseRecorder) responses.ErrorResponse {
	body := responses.ErrorResponse{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(&body), rec.Body.String())
	assert.True(suite.T(), body.Error)
	return body
}

func lower(s string) string {
	return strings.ToLower(s)
}
