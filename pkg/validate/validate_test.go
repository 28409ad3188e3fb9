package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string          `json:"name" validate:"required"`
	Channel string          `json:"channel" validate:"omitempty,oneof=INTERNAL RESELLER"`
	Amount  decimal.Decimal `json:"amount" validate:"gte=0"`
}

func TestStructReportsFirstField(t *testing.T) {
	err := Struct(&sample{Channel: "X", Amount: decimal.NewFromInt(-1)})
	require.Error(t, err)
	fe, ok := err.(*FieldError)
	require.True(t, ok)
	assert.Equal(t, "name", fe.Field)
	assert.Equal(t, "name is required", fe.Message)
}

func TestStructDecimalRules(t *testing.T) {
	err := Struct(&sample{Name: "a", Amount: decimal.NewFromInt(-5)})
	require.Error(t, err)
	assert.Equal(t, "amount must be greater than or equal to 0", err.Error())

	assert.NoError(t, Struct(&sample{Name: "a", Channel: "RESELLER", Amount: decimal.NewFromFloat(10.5)}))
}

func TestErrorf(t *testing.T) {
	err := Errorf("trip_date", "date", "trip_date %q is not a date", "mañana")
	assert.Equal(t, `trip_date "mañana" is not a date`, err.Error())
}
