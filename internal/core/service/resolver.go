package service

import (
	"context"
	"fmt"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
	"github.com/rl1809/cookie-tracker/internal/port"
)

// FindExisting looks up a returning customer by exact name and phone. A nil
// customer with a nil error means a new customer should be created. When
// several customers share name and phone the store's first result wins.
func FindExisting(ctx context.Context, store port.Store, name, phone string) (*domain.Customer, error) {
	customer, err := store.FindCustomer(ctx, name, phone)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return customer, nil
}
