package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rl1809/seckill/internal/adapter/storage"
	"github.com/rl1809/seckill/internal/config"
	"github.com/rl1809/seckill/internal/core/service"
	"github.com/rl1809/seckill/internal/metrics"
)

const (
	itemID        = int64(9999)
	initialStock  = int64(20)
	totalRequests = 50
)

func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	cfg := config.Load()
	ctx := context.Background()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fmt.Printf("invalid redis url: %v\n", err)
		return
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Printf("failed to connect redis: %v\n", err)
		return
	}
	defer rdb.Close()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		fmt.Printf("failed to open mysql: %v\n", err)
		return
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fmt.Printf("failed to ping mysql: %v\n", err)
		return
	}

	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Reset the load-test item in both stores
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		fmt.Printf("failed to ensure schema: %v\n", err)
		return
	}
	db.ExecContext(ctx, `DELETE FROM orders WHERE item_id = ?`, itemID)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO items (id, name, stock) VALUES (?, 'Load Test Item', ?)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock)`, itemID, initialStock); err != nil {
		fmt.Printf("failed to reset item: %v\n", err)
		return
	}
	rdb.Del(ctx, fmt.Sprintf("item_stock:%d", itemID))
	if _, err := redisAdapter.SeedStock(ctx, itemID, initialStock); err != nil {
		fmt.Printf("failed to seed stock: %v\n", err)
		return
	}

	purchaseService := service.NewPurchaseService(redisAdapter, mysqlAdapter, metrics.NewRecorder(""))

	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := purchaseService.Purchase(ctx, itemID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrSoldOut):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()
	failed := errorCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if int64(success) == initialStock && int64(soldOut) == int64(totalRequests)-initialStock {
		fmt.Printf("PASS: exactly %d purchases succeeded, %d sold out\n", initialStock, int64(totalRequests)-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d success / %d sold out, got %d / %d\n",
			initialStock, int64(totalRequests)-initialStock, success, soldOut)
	}

	finalCounter, _ := rdb.Get(ctx, fmt.Sprintf("item_stock:%d", itemID)).Int64()
	var finalStock int64
	db.QueryRowContext(ctx, `SELECT stock FROM items WHERE id = ?`, itemID).Scan(&finalStock)
	var orderCount int64
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE item_id = ?`, itemID).Scan(&orderCount)

	fmt.Printf("Final Counter:    %d\n", finalCounter)
	fmt.Printf("Final Stock:      %d\n", finalStock)
	fmt.Printf("Orders Recorded:  %d\n", orderCount)

	if finalCounter == 0 && finalStock == 0 && orderCount == int64(initialStock) {
		fmt.Println("PASS: counter, durable stock and ledger are consistent")
	} else {
		fmt.Println("FAIL: counter, durable stock and ledger disagree")
	}
}
