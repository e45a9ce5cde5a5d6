package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitPayout(t *testing.T) {
	tests := []struct {
		name                   string
		pay                    float64
		dcd, company, referrer string
	}{
		{"one shilling", 1, "0.6", "0.3", "0.1"},
		{"naira price", 10, "6", "3", "1"},
		{"rounding residual goes to dcd", 0.05, "0.02", "0.02", "0.01"},
		{"odd cents", 0.07, "0.04", "0.02", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pay := decimal.NewFromFloat(tt.pay)
			split := SplitPayout(pay)

			assert.Equal(t, tt.dcd, split.DCD.String())
			assert.Equal(t, tt.company, split.Company.String())
			assert.Equal(t, tt.referrer, split.Referrer.String())
			assert.True(t, split.Total().Equal(pay), "shares must sum to pay")
		})
	}
}

func TestSplitPayoutRoundsPayToCents(t *testing.T) {
	split := SplitPayout(decimal.RequireFromString("1.005"))

	assert.Equal(t, "0.61", split.DCD.String())
	assert.Equal(t, "0.3", split.Company.String())
	assert.Equal(t, "0.1", split.Referrer.String())
	assert.Equal(t, "1.01", split.Total().String())
}
