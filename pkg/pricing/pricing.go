package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CropPrice holds the three reference prices for one crop, in USD per lb.
// FarmerBuy is what the marketplace pays farmers; Bulk is the wholesale
// price charged to buyers; Retail is the consumer-facing list price.
type CropPrice struct {
	Name      string
	Retail    decimal.Decimal
	FarmerBuy decimal.Decimal
	Bulk      decimal.Decimal
}

var table = map[string]CropPrice{}

func register(name, retail, farmerBuy, bulk string) {
	table[strings.ToLower(name)] = CropPrice{
		Name:      name,
		Retail:    decimal.RequireFromString(retail),
		FarmerBuy: decimal.RequireFromString(farmerBuy),
		Bulk:      decimal.RequireFromString(bulk),
	}
}

func init() {
	register("Corn", "2.00", "1.40", "1.70")
	register("Wheat", "0.50", "0.35", "0.42")
	register("Potato", "0.75", "0.52", "0.63")
	register("Cotton", "1.25", "0.87", "1.05")
	register("Soybean", "0.85", "0.59", "0.72")
	register("Rice", "0.60", "0.42", "0.51")
	register("Peanut", "1.10", "0.77", "0.93")
	register("Tomato", "1.50", "1.05", "1.27")
	register("Apple", "1.75", "1.22", "1.48")
}

// Lookup resolves the reference prices for a crop name. Matching is
// case-insensitive; the second return is false for unknown crops.
func Lookup(name string) (CropPrice, bool) {
	price, ok := table[strings.ToLower(strings.TrimSpace(name))]
	return price, ok
}

// LineTotal prices a single request line at the farmer-buy rate.
func LineTotal(price CropPrice, amount int) decimal.Decimal {
	return price.FarmerBuy.Mul(decimal.NewFromInt(int64(amount)))
}

// Names returns the crop names covered by the reference table.
func Names() []string {
	names := make([]string, 0, len(table))
	for _, price := range table {
		names = append(names, price.Name)
	}
	return names
}
