package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
)

const webhookBuffer = 64

// StartWebhookSubscription posts every paid and delivered invoice to
// WebhookUrl until ctx is done.
func (svc *TokenhubService) StartWebhookSubscription(ctx context.Context) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", svc.Config.WebhookUrl)
	paidInvoices := make(chan models.Invoice, webhookBuffer)
	deliveredInvoices := make(chan models.Invoice, webhookBuffer)
	paidSub, _ := svc.InvoicePubSub.Subscribe(common.InvoiceStatePaid, paidInvoices)
	deliveredSub, _ := svc.InvoicePubSub.Subscribe(common.InvoiceStateDelivered, deliveredInvoices)
	defer svc.InvoicePubSub.Unsubscribe(paidSub, common.InvoiceStatePaid)
	defer svc.InvoicePubSub.Unsubscribe(deliveredSub, common.InvoiceStateDelivered)

	client := &http.Client{Timeout: 10 * time.Second}
	for {
		select {
		case <-ctx.Done():
			return
		case paid := <-paidInvoices:
			svc.postToWebhook(ctx, client, paid)
		case delivered := <-deliveredInvoices:
			svc.postToWebhook(ctx, client, delivered)
		}
	}
}

func (svc *TokenhubService) postToWebhook(ctx context.Context, client *http.Client, invoice models.Invoice) {
	payload := new(bytes.Buffer)
	err := json.NewEncoder(payload).Encode(invoice)
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.Config.WebhookUrl, payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}
