package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAttributeSignature(t *testing.T) {
	a := AttributeSignature(map[string]string{"Size": " M ", "color": "Red"})
	b := AttributeSignature(map[string]string{"COLOR": "red", "size": "m"})
	assert.Equal(t, "color=red;size=m", a)
	assert.Equal(t, a, b)

	assert.Equal(t, "", AttributeSignature(nil))
	assert.Equal(t, "size=l", AttributeSignature(map[string]string{" ": "x", "size": "L"}))
}

func TestVariation_UnitPrice(t *testing.T) {
	p := &Product{Price: decimal.RequireFromString("10.00")}
	override := decimal.RequireFromString("12.50")

	assert.True(t, (&Variation{Price: &override}).UnitPrice(p).Equal(override))
	assert.True(t, (&Variation{}).UnitPrice(p).Equal(p.Price))
	var none *Variation
	assert.True(t, none.UnitPrice(p).Equal(p.Price))
}

func TestLineKeyAndTotals(t *testing.T) {
	v := int64(7)
	assert.Equal(t, "3-7", LineKey(3, &v))
	assert.Equal(t, "3", LineKey(3, nil))

	line := CartLine{Quantity: 3, UnitPrice: decimal.RequireFromString("2.35")}
	assert.Equal(t, "7.05", line.LineTotal().StringFixed(2))
}

func TestCart_SortedLines(t *testing.T) {
	c := NewCart("s")
	for _, k := range []string{"4", "12-3", "1-9", "12-1"} {
		c.Lines[k] = CartLine{Key: k, Quantity: 1}
	}

	var keys []string
	for _, l := range c.SortedLines() {
		keys = append(keys, l.Key)
	}
	assert.Equal(t, []string{"1-9", "12-1", "12-3", "4"}, keys)
	assert.Empty(t, NewCart("empty").SortedLines())
}

func TestPercent_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "5.50", Percent(decimal.RequireFromString("110.00"), decimal.NewFromInt(5)).StringFixed(2))
	assert.Equal(t, "0.13", Percent(decimal.RequireFromString("2.50"), decimal.NewFromInt(5)).StringFixed(2))
}

func TestTaxConfiguration_Matches(t *testing.T) {
	all := TaxConfiguration{IsActive: true, AppliesToAll: true}
	some := TaxConfiguration{IsActive: true, CountryIDs: []int64{2}}
	off := TaxConfiguration{IsActive: false, AppliesToAll: true}

	assert.True(t, all.Matches(9))
	assert.True(t, some.Matches(2))
	assert.False(t, some.Matches(3))
	assert.False(t, off.Matches(2))
}
