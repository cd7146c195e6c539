package domain

import (
	"fmt"
	"math"
)

// Money is an amount in cents.
type Money int64

const (
	CookiePrice Money = 250
	DeliveryFee Money = 600
)

func (m Money) String() string {
	sign := ""
	// uint64 keeps the magnitude of math.MinInt64 representable
	abs := uint64(m)
	if m < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s$%d.%02d", sign, abs/100, abs%100)
}

// LineItemCost prices a quantity of cookies at the flat per-cookie rate.
func LineItemCost(quantity float64) Money {
	return Money(math.Round(quantity * float64(CookiePrice)))
}

// OrderCost sums the line items and adds the delivery fee when the order is delivered.
func OrderCost(items []Cookie, delivery bool) Money {
	var total Money
	for _, item := range items {
		total += item.Cost()
	}
	if delivery {
		total += DeliveryFee
	}
	return total
}

// CustomerTotalCost sums OrderCost over the given orders. Callers pick the
// subset (usually InProgress).
func CustomerTotalCost(orders []*Order) Money {
	var total Money
	for _, o := range orders {
		total += o.TotalCost()
	}
	return total
}
