package domain

import "github.com/google/uuid"

const (
	FlavorChocolateChip = "Chocolate Chip"
	FlavorSprinkle      = "Sprinkle"
	FlavorSmore         = "S'more"
	FlavorOreo          = "Oreo"
)

// Flavors is the catalog offered on the order form, in display order.
var Flavors = []string{FlavorChocolateChip, FlavorSprinkle, FlavorSmore, FlavorOreo}

// FlavorQuantity is one flavor selection on an order form.
type FlavorQuantity struct {
	Flavor   string
	Quantity float64
}

// Cookie is a line item of an order. OrderID is only used for lookup.
type Cookie struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Flavor   string
	Quantity float64
}

func (c Cookie) Cost() Money {
	return LineItemCost(c.Quantity)
}
