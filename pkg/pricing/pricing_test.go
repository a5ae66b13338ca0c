package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"Corn", "corn", "CORN", "  corn "} {
		price, ok := Lookup(name)
		require.True(t, ok, "expected %q to resolve", name)
		assert.Equal(t, "Corn", price.Name)
		assert.True(t, price.FarmerBuy.Equal(decimal.RequireFromString("1.40")))
	}
}

func TestLookupRejectsUnknownCrop(t *testing.T) {
	_, ok := Lookup("Dragonfruit")
	assert.False(t, ok)
}

func TestLineTotalUsesFarmerBuyRate(t *testing.T) {
	price, ok := Lookup("Wheat")
	require.True(t, ok)

	total := LineTotal(price, 200)
	assert.True(t, total.Equal(decimal.RequireFromString("70")), "got %s", total)
}

func TestNamesCoversFullTable(t *testing.T) {
	assert.Len(t, Names(), 9)
}
