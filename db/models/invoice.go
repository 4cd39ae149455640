package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Invoice : Invoice Model
// Amounts are base-10 integers in the token's smallest unit, kept as strings
// so they never pass through a float or an int64.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID                  string       `json:"id" bun:",pk"`
	Buyer               string       `json:"buyer" bun:",notnull"`
	Quantity            string       `json:"qty" bun:"qty,notnull"`
	AmountOut           string       `json:"amount_out" bun:",notnull"`
	RequiredInputAmount string       `json:"required_input_amount" bun:",notnull"`
	InputToken          string       `json:"token_in" bun:"token_in,notnull"`
	OutputToken         string       `json:"token_out" bun:"token_out,notnull"`
	Fee                 int64        `json:"fee" bun:",notnull"`
	Receiver            string       `json:"receiver" bun:",notnull"`
	State               string       `json:"state" bun:",notnull"`
	Paid                bool         `json:"paid" bun:",notnull"`
	PaidTx              string       `json:"paid_tx,omitempty" bun:",nullzero"`
	PaidAt              bun.NullTime `json:"paid_at"`
	DeliveryTx          string       `json:"delivery_tx,omitempty" bun:",nullzero"`
	DeliveredAt         bun.NullTime `json:"delivered_at"`
	DeliveryError       string       `json:"delivery_error,omitempty" bun:",nullzero"`
	CreatedAt           time.Time    `json:"created_at" bun:",notnull"`
	UpdatedAt           bun.NullTime `json:"updated_at"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)
