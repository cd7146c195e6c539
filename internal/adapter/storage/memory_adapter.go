package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

// MemoryAdapter is a process-local Store. Reads return copies so callers can
// mutate them freely until they save.
type MemoryAdapter struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
	pending   []func(map[uuid.UUID]*domain.Customer)
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{customers: make(map[uuid.UUID]*domain.Customer)}
}

func (m *MemoryAdapter) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := m.sorted()
	out := make([]*domain.Customer, len(sorted))
	for i, c := range sorted {
		out[i] = c.Clone()
	}
	return out, nil
}

func (m *MemoryAdapter) FindCustomer(ctx context.Context, name, phone string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.sorted() {
		if c.Name == name && c.Phone == phone {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (m *MemoryAdapter) SaveCustomer(ctx context.Context, customer *domain.Customer) error {
	snapshot := customer.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, func(customers map[uuid.UUID]*domain.Customer) {
		customers[snapshot.ID] = snapshot
	})
	return nil
}

func (m *MemoryAdapter) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, func(customers map[uuid.UUID]*domain.Customer) {
		delete(customers, id)
	})
	return nil
}

func (m *MemoryAdapter) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, func(customers map[uuid.UUID]*domain.Customer) {
		for _, c := range customers {
			if _, err := c.DeleteOrder(id); err == nil {
				return
			}
		}
	})
	return nil
}

func (m *MemoryAdapter) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, apply := range m.pending {
		apply(m.customers)
	}
	m.pending = nil
	return nil
}

// Rollback drops staged writes without applying them. Commit never fails here,
// so test fakes call it to mimic a failed commit.
func (m *MemoryAdapter) Rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

func (m *MemoryAdapter) sorted() []*domain.Customer {
	out := make([]*domain.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *domain.Customer) int {
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
