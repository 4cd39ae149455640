package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getAlby/tokenhub.go/common"
	"github.com/getAlby/tokenhub.go/db/models"
	"github.com/getAlby/tokenhub.go/lib/service"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// InvoiceStore persists invoices keyed by their id. Every state transition is a
// single conditional UPDATE, so two writers racing on the same invoice can never
// both win.
type InvoiceStore struct {
	DB *bun.DB
}

func NewInvoiceStore(db *bun.DB) *InvoiceStore {
	return &InvoiceStore{DB: db}
}

var _ service.InvoiceStore = (*InvoiceStore)(nil)

func (s *InvoiceStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	invoice := new(models.Invoice)
	err := s.DB.NewSelect().Model(invoice).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrInvoiceNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// PutInvoice inserts the invoice or replaces the stored record with the same id.
func (s *InvoiceStore) PutInvoice(ctx context.Context, invoice *models.Invoice) error {
	_, err := s.DB.NewInsert().
		Model(invoice).
		On("CONFLICT (id) DO UPDATE").
		Exec(ctx)
	return err
}

// MarkInvoicePaid flips paid from false to true. It fails with ErrInvoiceAlreadyPaid
// when another caller got there first and with ErrPaymentAlreadyUsed when the
// settlement transaction already paid a different invoice.
func (s *InvoiceStore) MarkInvoicePaid(ctx context.Context, id, txHash string, paidAt time.Time) error {
	res, err := s.DB.NewUpdate().
		Table("invoices").
		Set("paid = ?", true).
		Set("state = ?", common.InvoiceStatePaid).
		Set("paid_tx = ?", txHash).
		Set("paid_at = ?", paidAt).
		Set("updated_at = ?", paidAt).
		Where("id = ?", id).
		Where("paid = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM invoices AS used WHERE used.paid_tx = ?)", txHash).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", service.ErrPaymentAlreadyUsed, txHash)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// nothing was updated, find out why
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Paid {
		return fmt.Errorf("%w: %s", service.ErrInvoiceAlreadyPaid, id)
	}
	return fmt.Errorf("%w: %s", service.ErrPaymentAlreadyUsed, txHash)
}

func (s *InvoiceStore) MarkInvoiceDelivered(ctx context.Context, id, txHash string, deliveredAt time.Time) error {
	res, err := s.DB.NewUpdate().
		Table("invoices").
		Set("state = ?", common.InvoiceStateDelivered).
		Set("delivery_tx = ?", txHash).
		Set("delivered_at = ?", deliveredAt).
		Set("delivery_error = NULL").
		Set("updated_at = ?", deliveredAt).
		Where("id = ?", id).
		Where("paid = ?", true).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// MarkInvoiceDeliveryFailed records why delivery did not complete. An empty
// txHash keeps the previously recorded delivery transaction.
func (s *InvoiceStore) MarkInvoiceDeliveryFailed(ctx context.Context, id, txHash, reason string) error {
	q := s.DB.NewUpdate().
		Table("invoices").
		Set("delivery_error = ?", reason).
		Set("updated_at = ?", time.Now().UTC())
	if txHash != "" {
		q = q.Set("delivery_tx = ?", txHash)
	}
	res, err := q.
		Where("id = ?", id).
		Where("state = ?", common.InvoiceStatePaid).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

// ClaimRedelivery clears the recorded delivery error of a paid, undelivered
// invoice. Only one caller can claim a given failure.
func (s *InvoiceStore) ClaimRedelivery(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.NewUpdate().
		Table("invoices").
		Set("delivery_error = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("paid = ?", true).
		Where("state = ?", common.InvoiceStatePaid).
		Where("delivery_error IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListInvoices returns the invoices in one of the given states created within [from, to).
func (s *InvoiceStore) ListInvoices(ctx context.Context, states []string, from, to time.Time) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := s.DB.NewSelect().
		Model(&invoices).
		Where("state IN (?)", bun.In(states)).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Order("created_at ASC").
		Scan(ctx)
	return invoices, err
}

// ListFailedDeliveries returns paid invoices whose delivery failed and was
// last touched before until.
func (s *InvoiceStore) ListFailedDeliveries(ctx context.Context, until time.Time) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := s.DB.NewSelect().
		Model(&invoices).
		Where("paid = ?", true).
		Where("state = ?", common.InvoiceStatePaid).
		Where("delivery_error IS NOT NULL").
		Where("updated_at < ?", until).
		Order("created_at ASC").
		Scan(ctx)
	return invoices, err
}

func expectOneRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("%w: %s", service.ErrInvoiceNotFound, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
