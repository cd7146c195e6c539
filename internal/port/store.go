package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

// Store persists customers together with their orders and cookies. Writes are
// staged and become durable, and visible to reads, only on Commit.
type Store interface {
	// ListCustomers returns every customer sorted by name, orders loaded
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// FindCustomer returns the first customer whose name and phone both match exactly, nil if none
	FindCustomer(ctx context.Context, name, phone string) (*domain.Customer, error)

	// GetCustomer returns nil if the customer does not exist
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// SaveCustomer stages an upsert of the customer and everything it owns
	SaveCustomer(ctx context.Context, customer *domain.Customer) error

	// DeleteCustomer stages removal of the customer, its orders and their cookies
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	// DeleteOrder stages removal of the order and its cookies
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	// Commit applies staged writes atomically. Staged writes are discarded on failure.
	Commit(ctx context.Context) error
}
