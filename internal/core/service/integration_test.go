package service_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rl1809/cookie-tracker/internal/adapter/storage"
	"github.com/rl1809/cookie-tracker/internal/core/domain"
	"github.com/rl1809/cookie-tracker/internal/core/service"
)

type testEnv struct {
	redis     *redis.Client
	mysql     *sql.DB
	reminders *storage.RedisAdapter
	store     *storage.MySQLAdapter
	cleanup   func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/cookies"
	}
	mysqlDSN, err := storage.MySQLDSN(mysqlDSN)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := storage.Migrate(mysqlDSN); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prefix := "it-" + uuid.NewString()
	return &testEnv{
		redis:     rdb,
		mysql:     db,
		reminders: storage.NewRedisAdapter(rdb, prefix),
		store:     storage.NewMySQLAdapter(db),
		cleanup: func() {
			rdb.Del(context.Background(), prefix+":reminders:schedule", prefix+":reminders:payload")
			rdb.Close()
			db.Close()
		},
	}
}

func TestIntegration_ReturningCustomerFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	svc := service.NewOrderService(env.store, env.reminders, zerolog.Nop())

	details := service.CustomerDetails{
		Name:  "Integration " + uuid.NewString(),
		Phone: "555-0101",
		Email: "it@example.com",
	}
	promised := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	first, err := svc.SubmitOrder(ctx, service.SubmitOrderRequest{
		Customer:     details,
		PromisedDate: promised,
		Selections:   []domain.FlavorQuantity{{Flavor: domain.FlavorOreo, Quantity: 6}},
	})
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	defer env.mysql.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, first.Customer.ID)

	second, err := svc.SubmitOrder(ctx, service.SubmitOrderRequest{
		Customer:     details,
		PromisedDate: promised.Add(24 * time.Hour),
		Delivery:     true,
		Selections:   []domain.FlavorQuantity{{Flavor: domain.FlavorSprinkle, Quantity: 12}},
	})
	if err != nil {
		t.Fatalf("second order: %v", err)
	}

	if second.NewCustomer || second.Customer.ID != first.Customer.ID {
		t.Fatal("expected returning customer")
	}

	customer, err := svc.GetCustomer(ctx, first.Customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if len(customer.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(customer.Orders))
	}
	// 6 * 2.50 + 12 * 2.50 + 6.00 delivery
	if customer.TotalCost() != 5100 {
		t.Errorf("expected total 5100, got %d", customer.TotalCost())
	}

	pending, err := env.reminders.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 2 {
		t.Errorf("expected 2 pending reminders, got %d", pending)
	}

	if err := svc.CompleteOrder(ctx, customer.ID, first.Order.ID); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	pending, _ = env.reminders.Pending(ctx)
	if pending != 1 {
		t.Errorf("expected 1 pending reminder after completion, got %d", pending)
	}

	var stored int64
	env.mysql.QueryRowContext(ctx, `SELECT total_cost FROM customers WHERE id = ?`, customer.ID).Scan(&stored)
	if stored != 3600 {
		t.Errorf("expected stored total_cost 3600, got %d", stored)
	}
}

func TestIntegration_ConcurrentWorkersDeliverOnce(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	total := 10
	for i := 0; i < total; i++ {
		err := env.reminders.Schedule(ctx, domain.Reminder{
			ID:     uuid.NewString(),
			FireAt: time.Now().Add(-time.Minute),
			Title:  "Cookie order due soon",
		})
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	notifier := &countingNotifier{}
	var delivered atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker := service.NewReminderWorker(env.reminders, notifier, time.Second, zerolog.Nop())
			n, err := worker.Tick(ctx)
			if err != nil {
				t.Errorf("Tick: %v", err)
			}
			delivered.Add(int32(n))
		}()
	}
	wg.Wait()

	if delivered.Load() != int32(total) {
		t.Errorf("expected %d deliveries, got %d", total, delivered.Load())
	}
	if notifier.seen.Load() != int32(total) {
		t.Errorf("expected notifier to see %d reminders, got %d", total, notifier.seen.Load())
	}
}

type countingNotifier struct {
	seen atomic.Int32
}

func (n *countingNotifier) Notify(ctx context.Context, reminder domain.Reminder) error {
	n.seen.Add(1)
	return nil
}
