package service

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		qty      string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{qty: "10", decimals: 18, want: "10000000000000000000"},
		{qty: "10.5", decimals: 18, want: "10500000000000000000"},
		{qty: "0.000001", decimals: 6, want: "1"},
		{qty: "1", decimals: 0, want: "1"},
		{qty: "0.0000001", decimals: 6, wantErr: true},
		{qty: "1.5", decimals: 0, wantErr: true},
		{qty: "115792089237316195423570985008687907853269984665640564039457584007913129639935", decimals: 0, want: "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		{qty: "115792089237316195423570985008687907853269984665640564039457584007913129639936", decimals: 0, wantErr: true},
		{qty: "1e70", decimals: 18, wantErr: true},
		{qty: "1e80", decimals: 0, wantErr: true},
		{qty: "1e30000000", decimals: 18, wantErr: true},
		{qty: "1e-30000000", decimals: 18, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.qty, func(t *testing.T) {
			got, err := ScaleAmount(decimal.RequireFromString(tt.qty), tt.decimals)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadArguments)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCheckQuantity(t *testing.T) {
	assert.NoError(t, CheckQuantity(decimal.RequireFromString("10.5")))
	assert.NoError(t, CheckQuantity(decimal.RequireFromString("1e78")))
	assert.ErrorIs(t, CheckQuantity(decimal.RequireFromString("1e79")), ErrBadArguments)
	assert.ErrorIs(t, CheckQuantity(decimal.RequireFromString("1e-79")), ErrBadArguments)
	assert.ErrorIs(t, CheckQuantity(decimal.RequireFromString("1"+strings.Repeat("0", 80)+"e-10")), ErrBadArguments)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "5.25", FormatAmount(big.NewInt(5250000), 6))
	assert.Equal(t, "5", FormatAmount(big.NewInt(5000000), 6))
	assert.Equal(t, "0.000001", FormatAmount(big.NewInt(1), 6))
	assert.Equal(t, "42", FormatAmount(big.NewInt(42), 0))
}

func TestParseAmount(t *testing.T) {
	value, err := parseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	assert.NoError(t, err)
	assert.Equal(t, 256, value.BitLen())

	_, err = parseAmount("1e6")
	assert.Error(t, err)
}

func TestPaymentURI(t *testing.T) {
	assert.Equal(t,
		"ethereum:0xtoken@8453/transfer?address=0xreceiver&uint256=5000000",
		PaymentURI(big.NewInt(8453), "0xtoken", "0xreceiver", "5000000"))
	assert.Equal(t,
		"ethereum:0xtoken/transfer?address=0xreceiver&uint256=1",
		PaymentURI(nil, "0xtoken", "0xreceiver", "1"))
}
