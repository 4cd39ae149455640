package common

const (
	InvoiceStateCreated   = "created"
	InvoiceStatePaid      = "paid"
	InvoiceStateDelivered = "delivered"

	// Uniswap V3 medium pool tier (0.3%)
	DefaultFeeTier = 3000
	// fee is encoded as uint24 by the quoter
	MaxFeeTier = 1<<24 - 1
)
