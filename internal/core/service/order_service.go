package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
	"github.com/rl1809/cookie-tracker/internal/port"
)

var (
	ErrInvalidCustomer      = errors.New("invalid customer")
	ErrPromisedDateRequired = errors.New("promised date is required")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrPersistence          = errors.New("persistence failure")
)

// CustomerDetails are the contact fields collected on the order form.
type CustomerDetails struct {
	Name    string `validate:"required"`
	Phone   string `validate:"required"`
	Email   string `validate:"required"`
	Address string
}

func (d CustomerDetails) trimmed() CustomerDetails {
	return CustomerDetails{
		Name:    strings.TrimSpace(d.Name),
		Phone:   strings.TrimSpace(d.Phone),
		Email:   strings.TrimSpace(d.Email),
		Address: strings.TrimSpace(d.Address),
	}
}

type SubmitOrderRequest struct {
	Customer     CustomerDetails
	PromisedDate time.Time
	Delivery     bool
	Selections   []domain.FlavorQuantity
}

type SubmitOrderResult struct {
	Customer    *domain.Customer
	Order       *domain.Order
	Reminder    domain.Reminder
	NewCustomer bool
}

type OrderService struct {
	store     port.Store
	scheduler port.ReminderScheduler
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewOrderService(store port.Store, scheduler port.ReminderScheduler, logger zerolog.Logger) *OrderService {
	return &OrderService{
		store:     store,
		scheduler: scheduler,
		validate:  validator.New(),
		log:       logger.With().Str("component", "order_service").Logger(),
	}
}

// SubmitOrder records an order for a new or returning customer. Validation
// failures abort before the store is touched. The order counts as saved once
// the store commits; reminder scheduling failures are only logged.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	details := req.Customer.trimmed()
	if err := s.validate.Struct(details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}
	if req.PromisedDate.IsZero() {
		return nil, ErrPromisedDateRequired
	}
	if err := domain.ValidateSelections(req.Selections); err != nil {
		return nil, err
	}

	customer, err := FindExisting(ctx, s.store, details.Name, details.Phone)
	if err != nil {
		return nil, err
	}
	isNew := customer == nil
	if isNew {
		customer = domain.NewCustomer(details.Name, details.Phone, details.Email, details.Address)
	}

	order, reminder, err := customer.CreateOrder(req.PromisedDate, req.Delivery, req.Selections)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, customer); err != nil {
		s.log.Error().Err(err).
			Str("customer_id", customer.ID.String()).
			Str("order_id", order.ID.String()).
			Msg("save order")
		return nil, err
	}
	s.log.Info().
		Str("customer_id", customer.ID.String()).
		Str("order_id", order.ID.String()).
		Bool("new_customer", isNew).
		Int("cookies", order.TotalCookies()).
		Stringer("total", order.TotalCost()).
		Msg("order saved")

	s.schedule(ctx, reminder)

	return &SubmitOrderResult{
		Customer:    customer,
		Order:       order,
		Reminder:    reminder,
		NewCustomer: isNew,
	}, nil
}

// DeleteOrder removes the order and its cookies and cancels its reminder.
func (s *OrderService) DeleteOrder(ctx context.Context, customerID, orderID uuid.UUID) error {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if _, err := customer.DeleteOrder(orderID); err != nil {
		return err
	}

	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("%w: delete order: %w", ErrPersistence, err)
	}
	if err := s.store.Commit(ctx); err != nil {
		s.log.Error().Err(err).Str("order_id", orderID.String()).Msg("delete order")
		return fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}

	s.cancel(ctx, orderID)
	return nil
}

// CompleteOrder marks the order complete. Its reminder is no longer needed.
func (s *OrderService) CompleteOrder(ctx context.Context, customerID, orderID uuid.UUID) error {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	order, ok := customer.Order(orderID)
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.MarkComplete()

	if err := s.persist(ctx, customer); err != nil {
		s.log.Error().Err(err).Str("order_id", orderID.String()).Msg("complete order")
		return err
	}

	s.cancel(ctx, orderID)
	return nil
}

// DeleteCustomer removes the customer with all orders and cookies.
func (s *OrderService) DeleteCustomer(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCustomer(ctx, customerID); err != nil {
		return fmt.Errorf("%w: delete customer: %w", ErrPersistence, err)
	}
	if err := s.store.Commit(ctx); err != nil {
		s.log.Error().Err(err).Str("customer_id", customerID.String()).Msg("delete customer")
		return fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}

	for _, o := range customer.InProgressOrders() {
		s.cancel(ctx, o.ID)
	}
	return nil
}

// UpdateCustomer edits the contact fields of an existing customer.
func (s *OrderService) UpdateCustomer(ctx context.Context, customerID uuid.UUID, details CustomerDetails) (*domain.Customer, error) {
	details = details.trimmed()
	if err := s.validate.Struct(details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	customer.Name = details.Name
	customer.Phone = details.Phone
	customer.Email = details.Email
	customer.Address = details.Address

	if err := s.persist(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// UpdateNote saves the customer's note. Notes over the word limit are refused.
func (s *OrderService) UpdateNote(ctx context.Context, customerID uuid.UUID, note string) error {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := customer.SetNote(note); err != nil {
		return err
	}
	return s.persist(ctx, customer)
}

// ListCustomers returns customers sorted by name, optionally filtered by a
// case-insensitive name search.
func (s *OrderService) ListCustomers(ctx context.Context, search string) ([]*domain.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return customers, nil
	}
	var matched []*domain.Customer
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), search) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *OrderService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	return s.loadCustomer(ctx, customerID)
}

func (s *OrderService) CustomerSummary(ctx context.Context, customerID uuid.UUID) (domain.CustomerSummary, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerSummary{}, err
	}
	return customer.Summary(), nil
}

func (s *OrderService) loadCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

func (s *OrderService) persist(ctx context.Context, customer *domain.Customer) error {
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return fmt.Errorf("%w: save customer: %w", ErrPersistence, err)
	}
	if err := s.store.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}
	return nil
}

func (s *OrderService) schedule(ctx context.Context, reminder domain.Reminder) {
	if err := s.scheduler.Schedule(ctx, reminder); err != nil {
		s.log.Warn().Err(err).Str("order_id", reminder.ID).Msg("schedule reminder")
	}
}

func (s *OrderService) cancel(ctx context.Context, orderID uuid.UUID) {
	if err := s.scheduler.Cancel(ctx, orderID.String()); err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("cancel reminder")
	}
}
