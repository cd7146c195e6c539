package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinimumOrderSize = 6
	ReminderLeadTime = time.Hour
)

type OrderStatus string

const (
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Order belongs to exactly one customer and owns its cookies.
type Order struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	PromisedDate time.Time
	Delivery     bool
	Completed    bool
	Cookies      []Cookie
}

// Reminder is a request to notify the baker ahead of an order's promised date.
// ID is the order ID so the reminder can be cancelled with the order.
type Reminder struct {
	ID     string
	FireAt time.Time
	Title  string
	Body   string
}

// TotalQuantity sums the selections, rejecting NaN, infinite and negative
// quantities.
func TotalQuantity(selections []FlavorQuantity) (float64, error) {
	var total float64
	for _, s := range selections {
		if math.IsNaN(s.Quantity) || math.IsInf(s.Quantity, 0) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidQuantity, s.Flavor)
		}
		if s.Quantity < 0 {
			return 0, fmt.Errorf("%w: %s", ErrNegativeQuantity, s.Flavor)
		}
		total += s.Quantity
	}
	return total, nil
}

// ValidateSelections checks the minimum order size and line item rules
// without building anything.
func ValidateSelections(selections []FlavorQuantity) error {
	total, err := TotalQuantity(selections)
	if err != nil {
		return err
	}
	if total < MinimumOrderSize {
		return ErrOrderTooSmall
	}
	for _, s := range selections {
		if s.Quantity > 0 && strings.TrimSpace(s.Flavor) == "" {
			return ErrFlavorRequired
		}
	}
	return nil
}

// NewOrder builds an in-progress order for customer. Zero quantity selections
// produce no line item and repeated flavors are merged. The order is not
// attached to the customer; see Customer.CreateOrder.
func NewOrder(customer *Customer, promisedDate time.Time, delivery bool, selections []FlavorQuantity) (*Order, Reminder, error) {
	if err := ValidateSelections(selections); err != nil {
		return nil, Reminder{}, err
	}

	order := &Order{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		PromisedDate: promisedDate,
		Delivery:     delivery,
	}
	index := make(map[string]int, len(selections))
	for _, s := range selections {
		if s.Quantity == 0 {
			continue
		}
		flavor := strings.TrimSpace(s.Flavor)
		if i, ok := index[flavor]; ok {
			order.Cookies[i].Quantity += s.Quantity
			continue
		}
		index[flavor] = len(order.Cookies)
		order.Cookies = append(order.Cookies, Cookie{
			ID:       uuid.New(),
			OrderID:  order.ID,
			Flavor:   flavor,
			Quantity: s.Quantity,
		})
	}

	return order, order.reminder(customer.Name), nil
}

func (o *Order) reminder(customerName string) Reminder {
	mode := "pickup"
	if o.Delivery {
		mode = "delivery"
	}
	return Reminder{
		ID:     o.ID.String(),
		FireAt: o.PromisedDate.Add(-ReminderLeadTime),
		Title:  "Cookie order due soon",
		Body: fmt.Sprintf("%s: %d cookies for %s at %s",
			customerName, o.TotalCookies(), mode, o.PromisedDate.Format("Jan 02, 2006 3:04 PM")),
	}
}

// TotalCookies is the number of whole cookies in the order.
func (o *Order) TotalCookies() int {
	var total float64
	for _, c := range o.Cookies {
		total += c.Quantity
	}
	return int(total)
}

func (o *Order) TotalCost() Money {
	return OrderCost(o.Cookies, o.Delivery)
}

func (o *Order) MarkComplete() {
	o.Completed = true
}

func (o *Order) Status() OrderStatus {
	if o.Completed {
		return OrderStatusCompleted
	}
	return OrderStatusInProgress
}

func (o *Order) clone() *Order {
	cp := *o
	cp.Cookies = slices.Clone(o.Cookies)
	return &cp
}

func InProgress(orders []*Order) []*Order {
	return filterOrders(orders, false)
}

func Historical(orders []*Order) []*Order {
	return filterOrders(orders, true)
}

func filterOrders(orders []*Order, completed bool) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Completed == completed {
			out = append(out, o)
		}
	}
	return out
}

// DateGroup collects the orders promised on one calendar day.
type DateGroup struct {
	Date     time.Time
	Orders   []*Order
	Cookies  int
	Subtotal Money
}

// GroupByPromisedDate buckets orders by the calendar day of their promised
// date, in the date's own location. Groups are ascending by day and orders
// within a group ascending by promised time.
func GroupByPromisedDate(orders []*Order) []DateGroup {
	index := make(map[string]int)
	var groups []DateGroup
	for _, o := range orders {
		day := startOfDay(o.PromisedDate)
		key := day.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{Date: day})
		}
		groups[i].Orders = append(groups[i].Orders, o)
		groups[i].Cookies += o.TotalCookies()
		groups[i].Subtotal += o.TotalCost()
	}

	slices.SortFunc(groups, func(a, b DateGroup) int {
		return a.Date.Compare(b.Date)
	})
	for _, g := range groups {
		slices.SortStableFunc(g.Orders, func(a, b *Order) int {
			return a.PromisedDate.Compare(b.PromisedDate)
		})
	}
	return groups
}

// FlavorTotal is the summed quantity of one flavor across orders.
type FlavorTotal struct {
	Flavor   string
	Quantity float64
}

// GroupByFlavor consolidates line items of all orders by flavor, sorted
// alphabetically.
func GroupByFlavor(orders []*Order) []FlavorTotal {
	sums := make(map[string]float64)
	for _, o := range orders {
		for _, c := range o.Cookies {
			sums[c.Flavor] += c.Quantity
		}
	}

	totals := make([]FlavorTotal, 0, len(sums))
	for flavor, qty := range sums {
		totals = append(totals, FlavorTotal{Flavor: flavor, Quantity: qty})
	}
	slices.SortFunc(totals, func(a, b FlavorTotal) int {
		return strings.Compare(a.Flavor, b.Flavor)
	})
	return totals
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
