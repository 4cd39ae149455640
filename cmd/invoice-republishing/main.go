package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db"
	"github.com/getAlby/tokenhub.go/lib"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/getAlby/tokenhub.go/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Republishes paid and delivered invoices of a time window to the invoice
// exchange, e.g. after the broker lost messages.
//
//	START_DATE=2025-10-01T00:00:00Z END_DATE=2025-10-02T00:00:00Z DRY_RUN=true invoice-republishing
func main() {

	c := &service.Config{}
	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	logger := lib.Logger(c.LogFilePath)
	startDate, endDate, err := loadStartAndEndDateFromEnv()
	if err != nil {
		logger.Fatalf("Could not load start and end date from env %v", err)
	}
	err = envconfig.Process("", c)
	if err != nil {
		logger.Fatalf("Error loading environment variables: %v", err)
	}
	if c.RabbitMQUri == "" {
		logger.Fatal("RABBITMQ_URI is required")
	}
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
	amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
	if err != nil {
		logger.Fatal(err)
	}

	defer amqpClient.Close()

	rabbitmqClient, err := rabbitmq.NewClient(amqpClient,
		rabbitmq.WithLogger(logger),
		rabbitmq.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
	)
	if err != nil {
		logger.Fatal(err)
	}

	// close the connection gently at the end of the runtime
	defer rabbitmqClient.Close()

	ctx := context.Background()
	store := db.NewInvoiceStore(dbConn)
	result, err := store.ListInvoices(ctx, []string{common.InvoiceStatePaid, common.InvoiceStateDelivered}, startDate, endDate)
	if err != nil {
		logger.Fatal(err)
	}
	logrus.Infof("Found %d invoices", len(result))
	svc := &service.TokenhubService{
		Config:         c,
		Store:          store,
		Logger:         logger,
		RabbitMQClient: rabbitmqClient,
	}

	dryRun := os.Getenv("DRY_RUN") == "true"
	errCount := 0
	for _, inv := range result {
		logger.Infof("Publishing invoice %s in state %s", inv.ID, inv.State)
		if dryRun {
			continue
		}
		err = svc.RabbitMQClient.PublishInvoice(ctx, inv, svc.EncodeInvoiceEvent)
		if err != nil {
			errCount += 1
			logger.Error(err)
			sentry.CaptureException(err)
		}
	}
	logger.Infof("Published %d invoices, # errors %d", len(result), errCount)

}

func loadStartAndEndDateFromEnv() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, os.Getenv("START_DATE"))
	if err != nil {
		return
	}
	end, err = time.Parse(time.RFC3339, os.Getenv("END_DATE"))
	return
}
