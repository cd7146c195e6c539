package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/cookies"
	}
	dsn, err := MySQLDSN(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func newMySQLCustomer(t *testing.T, db *sql.DB) *domain.Customer {
	c := domain.NewCustomer("Test "+uuid.NewString(), "555-0100", "test@example.com", "")
	t.Cleanup(func() {
		db.Exec(`DELETE FROM customers WHERE id = ?`, c.ID)
	})
	return c
}

var mysqlPromised = time.Date(2026, time.October, 20, 15, 0, 0, 0, time.UTC)

func TestSaveCustomer_VisibleOnlyAfterCommit(t *testing.T) {
	db := getMySQLDB(t)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	c := newMySQLCustomer(t, db)
	if _, _, err := c.CreateOrder(mysqlPromised, true, []domain.FlavorQuantity{
		{Flavor: domain.FlavorOreo, Quantity: 4},
		{Flavor: domain.FlavorSprinkle, Quantity: 2},
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := adapter.SaveCustomer(ctx, c); err != nil {
		t.Fatalf("SaveCustomer failed: %v", err)
	}

	got, err := adapter.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if got != nil {
		t.Fatal("customer visible before commit")
	}

	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err = adapter.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected customer, got nil")
	}
	if len(got.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got.Orders))
	}

	order := got.Orders[0]
	if !order.PromisedDate.Equal(mysqlPromised) {
		t.Errorf("expected promised date %v, got %v", mysqlPromised, order.PromisedDate)
	}
	if len(order.Cookies) != 2 || order.Cookies[0].Flavor != domain.FlavorOreo {
		t.Errorf("unexpected cookies: %+v", order.Cookies)
	}
	if order.TotalCost() != 2100 {
		t.Errorf("expected total 2100, got %d", order.TotalCost())
	}

	var stored int64
	db.QueryRowContext(ctx, `SELECT total_cost FROM customers WHERE id = ?`, c.ID).Scan(&stored)
	if stored != 2100 {
		t.Errorf("expected stored total_cost 2100, got %d", stored)
	}
}

func TestFindCustomer_ExactMatch(t *testing.T) {
	db := getMySQLDB(t)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	c := newMySQLCustomer(t, db)
	adapter.SaveCustomer(ctx, c)
	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	found, err := adapter.FindCustomer(ctx, c.Name, c.Phone)
	if err != nil {
		t.Fatalf("FindCustomer failed: %v", err)
	}
	if found == nil || found.ID != c.ID {
		t.Fatalf("expected customer %s, got %+v", c.ID, found)
	}

	found, err = adapter.FindCustomer(ctx, c.Name, "555-0199")
	if err != nil {
		t.Fatalf("FindCustomer failed: %v", err)
	}
	if found != nil {
		t.Error("expected no match for different phone")
	}
}

func TestDeleteOrder_UpdatesCustomerTotal(t *testing.T) {
	db := getMySQLDB(t)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	c := newMySQLCustomer(t, db)
	first, _, _ := c.CreateOrder(mysqlPromised, false, []domain.FlavorQuantity{{Flavor: domain.FlavorSmore, Quantity: 6}})
	c.CreateOrder(mysqlPromised.Add(24*time.Hour), false, []domain.FlavorQuantity{{Flavor: domain.FlavorOreo, Quantity: 8}})
	adapter.SaveCustomer(ctx, c)
	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	adapter.DeleteOrder(ctx, first.ID)
	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	var cookies int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies WHERE order_id = ?`, first.ID).Scan(&cookies)
	if cookies != 0 {
		t.Errorf("expected cookies removed, found %d", cookies)
	}

	var stored int64
	db.QueryRowContext(ctx, `SELECT total_cost FROM customers WHERE id = ?`, c.ID).Scan(&stored)
	if stored != 2000 {
		t.Errorf("expected total_cost 2000, got %d", stored)
	}
}

func TestCommit_FailureDiscardsStagedWrites(t *testing.T) {
	db := getMySQLDB(t)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	c := newMySQLCustomer(t, db)
	adapter.SaveCustomer(ctx, c)

	// An order for a customer that does not exist violates the foreign key.
	orphan := domain.NewCustomer("Orphan", "555-0000", "orphan@example.com", "")
	adapter.stage(func(ctx context.Context, tx *sql.Tx) error {
		return saveOrder(ctx, tx, &domain.Order{ID: uuid.New(), CustomerID: orphan.ID, PromisedDate: mysqlPromised})
	})

	if err := adapter.Commit(ctx); err == nil {
		t.Fatal("expected commit to fail")
	}

	got, err := adapter.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if got != nil {
		t.Error("customer persisted despite failed commit")
	}

	// Nothing left to retry.
	if err := adapter.Commit(ctx); err != nil {
		t.Errorf("expected empty commit, got %v", err)
	}
}

func TestDeleteCustomer_Cascades(t *testing.T) {
	db := getMySQLDB(t)

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	c := newMySQLCustomer(t, db)
	order, _, _ := c.CreateOrder(mysqlPromised, false, []domain.FlavorQuantity{{Flavor: domain.FlavorChocolateChip, Quantity: 6}})
	adapter.SaveCustomer(ctx, c)
	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	adapter.DeleteCustomer(ctx, c.ID)
	if err := adapter.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	var orders int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, order.ID).Scan(&orders)
	if orders != 0 {
		t.Errorf("expected order removed, found %d", orders)
	}
}
