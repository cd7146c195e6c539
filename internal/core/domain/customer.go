package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxNoteWords = 10

// Customer owns its orders. Name and phone together identify a returning
// customer.
type Customer struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Email   string
	Address string
	Note    string
	Orders  []*Order
}

func NewCustomer(name, phone, email, address string) *Customer {
	return &Customer{
		ID:      uuid.New(),
		Name:    name,
		Phone:   phone,
		Email:   email,
		Address: address,
	}
}

// CreateOrder builds a new order and attaches it to the customer. Nothing is
// attached when the selections are rejected.
func (c *Customer) CreateOrder(promisedDate time.Time, delivery bool, selections []FlavorQuantity) (*Order, Reminder, error) {
	order, reminder, err := NewOrder(c, promisedDate, delivery, selections)
	if err != nil {
		return nil, Reminder{}, err
	}
	c.Orders = append(c.Orders, order)
	return order, reminder, nil
}

// DeleteOrder detaches the order, and with it its cookies, from the customer.
func (c *Customer) DeleteOrder(orderID uuid.UUID) (*Order, error) {
	i := slices.IndexFunc(c.Orders, func(o *Order) bool { return o.ID == orderID })
	if i < 0 {
		return nil, ErrOrderNotFound
	}
	order := c.Orders[i]
	c.Orders = slices.Delete(c.Orders, i, i+1)
	return order, nil
}

func (c *Customer) Order(orderID uuid.UUID) (*Order, bool) {
	for _, o := range c.Orders {
		if o.ID == orderID {
			return o, true
		}
	}
	return nil, false
}

func (c *Customer) InProgressOrders() []*Order {
	return InProgress(c.Orders)
}

func (c *Customer) HistoricalOrders() []*Order {
	return Historical(c.Orders)
}

// TotalCost is the current amount owed: completed orders are excluded.
func (c *Customer) TotalCost() Money {
	return CustomerTotalCost(c.InProgressOrders())
}

func (c *Customer) HistoricalCost() Money {
	return CustomerTotalCost(c.HistoricalOrders())
}

// SetNote replaces the note unless it is over MaxNoteWords.
func (c *Customer) SetNote(note string) error {
	if NoteWordCount(note) > MaxNoteWords {
		return ErrNoteTooLong
	}
	c.Note = note
	return nil
}

func NoteWordCount(note string) int {
	return len(strings.Fields(note))
}

// Clone returns a deep copy of the customer and its orders.
func (c *Customer) Clone() *Customer {
	cp := *c
	cp.Orders = make([]*Order, len(c.Orders))
	for i, o := range c.Orders {
		cp.Orders[i] = o.clone()
	}
	return &cp
}

// CustomerSummary is the aggregated view of a customer's orders.
type CustomerSummary struct {
	InProgress     []*Order
	Historical     []*Order
	ByDate         []DateGroup
	ByFlavor       []FlavorTotal
	TotalCookies   int
	TotalCost      Money
	HistoricalCost Money
}

// Summary groups in-progress orders by date and by flavor and totals them.
func (c *Customer) Summary() CustomerSummary {
	current := c.InProgressOrders()
	past := c.HistoricalOrders()

	var cookies int
	for _, o := range current {
		cookies += o.TotalCookies()
	}
	return CustomerSummary{
		InProgress:     current,
		Historical:     past,
		ByDate:         GroupByPromisedDate(current),
		ByFlavor:       GroupByFlavor(current),
		TotalCookies:   cookies,
		TotalCost:      CustomerTotalCost(current),
		HistoricalCost: CustomerTotalCost(past),
	}
}
