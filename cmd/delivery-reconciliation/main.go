package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getAlby/tokenhub.go/db"
	"github.com/getAlby/tokenhub.go/evm"
	"github.com/getAlby/tokenhub.go/lib"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// script to retry the delivery of paid invoices whose delivery failed
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}
	err = c.Validate()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := lib.Logger(c.LogFilePath)

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: c.SentryDSN}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	startupCtx := context.Background()
	evmCfg, err := evm.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load chain config %v", err)
	}
	chainClient, err := evm.NewEthClient(startupCtx, evmCfg)
	if err != nil {
		logger.Fatalf("Error connecting to %s: %v", evmCfg.RPCUrl, err)
	}
	defer chainClient.Close()
	if _, ok := chainClient.SignerAddress(); !ok {
		logger.Fatal("SIGNER_PRIVATE_KEY is required to redeliver")
	}

	store := db.NewInvoiceStore(dbConn)
	svc := &service.TokenhubService{
		Config:        c,
		Store:         store,
		ChainClient:   chainClient,
		Logger:        logger,
		InvoicePubSub: service.NewPubsub(),
	}

	//only failures older than the delivery timeout, a running request may still own newer ones
	ts := time.Now().UTC().Add(-2 * time.Duration(c.DeliveryTimeout) * time.Second)
	failed, err := store.ListFailedDeliveries(startupCtx, ts)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infof("Found %d invoices with a failed delivery", len(failed))

	redelivered, errCount := 0, 0
	for _, inv := range failed {
		_, txHash, err := svc.RedeliverInvoice(startupCtx, inv.ID, false)
		switch {
		case err == nil:
			redelivered += 1
			logger.Infof("Redelivered invoice %s in %s", inv.ID, txHash)
		case errors.Is(err, service.ErrDeliveryInProgress):
			logger.Infof("Skipping invoice %s: %v", inv.ID, err)
		default:
			errCount += 1
			sentry.CaptureException(err)
			logger.Error(err)
		}
	}
	logger.Infof("Redelivered %d invoices, # errors %d", redelivered, errCount)
}
