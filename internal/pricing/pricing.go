// Package pricing turns order line items and fees into a price breakdown.
// Order creation and repricing both go through Calculate.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat VAT applied to the item subtotal.
var TaxRate = decimal.RequireFromString("0.075")

// Item is one priced line.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// Breakdown is the pricing snapshot stored on an order.
type Breakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	PickupFee   decimal.Decimal `json:"pickup_fee"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Calculate prices items plus fees minus discount. Tax and total are rounded
// half-up to two places; the subtotal is exact.
func Calculate(items []Item, pickupFee, deliveryFee, discount decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity)))
	}

	rawTax := subtotal.Mul(TaxRate)
	total := subtotal.Add(pickupFee).Add(deliveryFee).Sub(discount).Add(rawTax)

	return Breakdown{
		Subtotal:    subtotal,
		PickupFee:   pickupFee,
		DeliveryFee: deliveryFee,
		Discount:    discount,
		Tax:         Round2(rawTax),
		Total:       Round2(total),
	}
}

// Round2 rounds half away from zero to currency minor units.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DueAt returns when an order placed at createdAt must be ready.
func DueAt(createdAt time.Time, durationHours int) time.Time {
	return createdAt.Add(time.Duration(durationHours) * time.Hour)
}
