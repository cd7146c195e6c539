package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

type stagedWrite func(ctx context.Context, tx *sql.Tx) error

// MySQLAdapter stores customers, orders and cookies in MySQL. Writes are
// queued until Commit runs them in a single transaction.
type MySQLAdapter struct {
	db *sql.DB

	mu      sync.Mutex
	pending []stagedWrite
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

const customerColumns = `id, name, phone, email, address, note`

func (m *MySQLAdapter) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	customers, err := scanCustomers(rows)
	if err != nil {
		return nil, err
	}

	if err := m.attachOrders(ctx, customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (m *MySQLAdapter) FindCustomer(ctx context.Context, name, phone string) (*domain.Customer, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers WHERE name = ? AND phone = ?
		ORDER BY id LIMIT 1`, name, phone)
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return m.single(ctx, rows)
}

func (m *MySQLAdapter) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return m.single(ctx, rows)
}

func (m *MySQLAdapter) SaveCustomer(ctx context.Context, customer *domain.Customer) error {
	snapshot := customer.Clone()
	m.stage(func(ctx context.Context, tx *sql.Tx) error {
		return saveCustomer(ctx, tx, snapshot)
	})
	return nil
}

func (m *MySQLAdapter) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	m.stage(func(ctx context.Context, tx *sql.Tx) error {
		// orders and cookies cascade
		if _, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		return nil
	})
	return nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	m.stage(func(ctx context.Context, tx *sql.Tx) error {
		var customerID uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT customer_id FROM orders WHERE id = ?`, id).Scan(&customerID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("query order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE customers SET total_cost = (
				SELECT COALESCE(SUM(total_cost), 0) FROM orders
				WHERE customer_id = ? AND is_completed = FALSE
			), updated_at = NOW(6)
			WHERE id = ?`, customerID, customerID)
		if err != nil {
			return fmt.Errorf("update customer total: %w", err)
		}
		return nil
	})
	return nil
}

func (m *MySQLAdapter) Commit(ctx context.Context) error {
	m.mu.Lock()
	writes := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, write := range writes {
		if err := write(ctx, tx); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) stage(write stagedWrite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, write)
}

func saveCustomer(ctx context.Context, tx *sql.Tx, c *domain.Customer) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, note, total_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), phone = VALUES(phone), email = VALUES(email),
			address = VALUES(address), note = VALUES(note),
			total_cost = VALUES(total_cost), updated_at = NOW(6)`,
		c.ID, c.Name, c.Phone, c.Email, nullString(c.Address), nullString(c.Note), int64(c.TotalCost()),
	)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}

	if err := deleteDroppedOrders(ctx, tx, c); err != nil {
		return err
	}

	for _, o := range c.Orders {
		if err := saveOrder(ctx, tx, o); err != nil {
			return err
		}
	}
	return nil
}

func deleteDroppedOrders(ctx context.Context, tx *sql.Tx, c *domain.Customer) error {
	query := `DELETE FROM orders WHERE customer_id = ?`
	args := []any{c.ID}
	if len(c.Orders) > 0 {
		query += ` AND id NOT IN (` + placeholders(len(c.Orders)) + `)`
		for _, o := range c.Orders {
			args = append(args, o.ID)
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete dropped orders: %w", err)
	}
	return nil
}

func saveOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, promised_date, delivery, is_completed, total_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(6), NOW(6))
		ON DUPLICATE KEY UPDATE
			promised_date = VALUES(promised_date), delivery = VALUES(delivery),
			is_completed = VALUES(is_completed), total_cost = VALUES(total_cost),
			updated_at = NOW(6)`,
		o.ID, o.CustomerID, o.PromisedDate.UTC(), o.Delivery, o.Completed, int64(o.TotalCost()),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	// cookies are immutable once ordered, rewrite them wholesale
	if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("delete cookies: %w", err)
	}
	for i, ck := range o.Cookies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cookies (id, order_id, position, flavor, quantity, total_cost)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ck.ID, o.ID, i, ck.Flavor, ck.Quantity, int64(ck.Cost()),
		)
		if err != nil {
			return fmt.Errorf("insert cookie: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) single(ctx context.Context, rows *sql.Rows) (*domain.Customer, error) {
	customers, err := scanCustomers(rows)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	if err := m.attachOrders(ctx, customers); err != nil {
		return nil, err
	}
	return customers[0], nil
}

func scanCustomers(rows *sql.Rows) ([]*domain.Customer, error) {
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var (
			c             domain.Customer
			address, note sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &address, &note); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.Address = address.String
		c.Note = note.String
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	return customers, nil
}

// attachOrders loads the orders and cookies of every customer in two queries.
func (m *MySQLAdapter) attachOrders(ctx context.Context, customers []*domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	byCustomer := make(map[uuid.UUID]*domain.Customer, len(customers))
	args := make([]any, 0, len(customers))
	for _, c := range customers {
		byCustomer[c.ID] = c
		args = append(args, c.ID)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, customer_id, promised_date, delivery, is_completed
		FROM orders WHERE customer_id IN (`+placeholders(len(args))+`)
		ORDER BY created_at, id`, args...)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}

	byOrder := make(map[uuid.UUID]*domain.Order)
	var orderIDs []any
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.PromisedDate, &o.Delivery, &o.Completed); err != nil {
			rows.Close()
			return fmt.Errorf("scan order: %w", err)
		}
		c := byCustomer[o.CustomerID]
		c.Orders = append(c.Orders, &o)
		byOrder[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	if len(orderIDs) == 0 {
		return nil
	}

	rows, err = m.db.QueryContext(ctx, `
		SELECT id, order_id, flavor, quantity
		FROM cookies WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY order_id, position`, orderIDs...)
	if err != nil {
		return fmt.Errorf("query cookies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ck domain.Cookie
		if err := rows.Scan(&ck.ID, &ck.OrderID, &ck.Flavor, &ck.Quantity); err != nil {
			return fmt.Errorf("scan cookie: %w", err)
		}
		o := byOrder[ck.OrderID]
		o.Cookies = append(o.Cookies, ck)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read cookies: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
