package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/seckill/internal/core/domain"
	"github.com/rl1809/seckill/internal/core/service"
	"github.com/rl1809/seckill/internal/metrics"
)

// Mock CacheRepository. Window counting is keyed per window unless
// globalWindow is set, which counts every call in one bucket so limiter
// tests cannot flake across a wall-clock second boundary.
type stubCache struct {
	mu           sync.Mutex
	stock        map[int64]int64
	windows      map[string]int64
	globalWindow bool
	windowCount  int64
	windowErr    error
}

func newStubCache() *stubCache {
	return &stubCache{
		stock:   make(map[int64]int64),
		windows: make(map[string]int64),
	}
}

func (s *stubCache) ReserveStock(ctx context.Context, itemID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[itemID]--
	return s.stock[itemID], nil
}

func (s *stubCache) ReleaseStock(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[itemID]++
	return nil
}

func (s *stubCache) SeedStock(ctx context.Context, itemID int64, stock int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[itemID]; ok {
		return false, nil
	}
	s.stock[itemID] = stock
	return true, nil
}

func (s *stubCache) IncrementWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windowErr != nil {
		return 0, s.windowErr
	}
	if s.globalWindow {
		s.windowCount++
		return s.windowCount, nil
	}
	s.windows[key]++
	return s.windows[key], nil
}

// Mock DatabaseRepository
type stubDB struct {
	mu          sync.Mutex
	items       []domain.Item
	durable     map[int64]int64
	orders      []int64
	listErr     error
	saleErr     error
	nextOrderID int64
}

func newStubDB() *stubDB {
	return &stubDB{durable: make(map[int64]int64)}
}

func (s *stubDB) ListItems(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Item(nil), s.items...), nil
}

func (s *stubDB) RecordSale(ctx context.Context, itemID int64) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saleErr != nil {
		return domain.Order{}, s.saleErr
	}
	if s.durable[itemID] <= 0 {
		return domain.Order{}, errors.New("durable stock depleted")
	}
	s.durable[itemID]--
	s.nextOrderID++
	s.orders = append(s.orders, itemID)
	return domain.Order{ID: s.nextOrderID, ItemID: itemID, CreatedAt: time.Now()}, nil
}

func (s *stubDB) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func newTestRouter(cache *stubCache, db *stubDB, limit int64) http.Handler {
	svc := service.NewPurchaseService(cache, db, metrics.NewRecorder(""))
	limiter := service.NewRateLimiter(cache, limit)
	return NewRouter(NewHTTPHandler(svc, db), limiter)
}

func doPurchase(router http.Handler, itemID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/purchase/"+itemID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPurchase_Success(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 2
	db := newStubDB()
	db.durable[1] = 2

	router := newTestRouter(cache, db, 100)

	w := doPurchase(router, "1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PurchaseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Remaining != 1 {
		t.Errorf("expected remaining 1, got %d", resp.Remaining)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}
}

func TestPurchase_SoldOut(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 0
	db := newStubDB()

	router := newTestRouter(cache, db, 100)

	w := doPurchase(router, "1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if db.orderCount() != 0 {
		t.Errorf("expected no orders, got %d", db.orderCount())
	}
}

func TestPurchase_InvalidItemID(t *testing.T) {
	router := newTestRouter(newStubCache(), newStubDB(), 100)

	w := doPurchase(router, "not-a-number")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPurchase_PersistenceFailure(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 5
	db := newStubDB()
	db.saleErr = errors.New("connection lost")

	router := newTestRouter(cache, db, 100)

	w := doPurchase(router, "1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if cache.stock[1] != 5 {
		t.Errorf("expected counter restored to 5, got %d", cache.stock[1])
	}
}

func TestPurchase_RateLimited(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 100
	cache.globalWindow = true
	db := newStubDB()
	db.durable[1] = 100

	router := newTestRouter(cache, db, 3)

	for i := 0; i < 3; i++ {
		w := doPurchase(router, "1")
		if w.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := doPurchase(router, "1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on 4th attempt, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After header, got %q", w.Header().Get("Retry-After"))
	}

	// the rejected attempt never reached the coordinator
	if db.orderCount() != 3 {
		t.Errorf("expected 3 orders, got %d", db.orderCount())
	}
}

func TestPurchase_LimiterStoreFailure(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 5
	cache.windowErr = errors.New("redis down")
	db := newStubDB()
	db.durable[1] = 5

	router := newTestRouter(cache, db, 3)

	w := doPurchase(router, "1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected fail-closed 500, got %d", w.Code)
	}
	if db.orderCount() != 0 {
		t.Errorf("expected no orders, got %d", db.orderCount())
	}
}

func TestListItems(t *testing.T) {
	db := newStubDB()
	db.items = []domain.Item{
		{ID: 1, Name: "Widget", Stock: 5},
		{ID: 2, Name: "Gadget", Stock: 0},
	}

	router := newTestRouter(newStubCache(), db, 100)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var items []ItemResponse
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Widget" || items[0].Stock != 5 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestListItems_Failure(t *testing.T) {
	db := newStubDB()
	db.listErr = errors.New("mysql down")

	router := newTestRouter(newStubCache(), db, 100)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// Three buyers race for two units: two win with remaining values {1, 0},
// one gets sold out, and the ledger holds exactly two rows.
func TestPurchase_ScenarioTwoUnitsThreeBuyers(t *testing.T) {
	cache := newStubCache()
	cache.stock[1] = 2
	db := newStubDB()
	db.durable[1] = 2

	router := newTestRouter(cache, db, 100)

	var mu sync.Mutex
	statuses := make(map[int]int)
	remainings := make(map[int64]int)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doPurchase(router, "1")

			mu.Lock()
			defer mu.Unlock()
			statuses[w.Code]++
			if w.Code == http.StatusOK {
				var resp PurchaseResponse
				json.NewDecoder(w.Body).Decode(&resp)
				remainings[resp.Remaining]++
			}
		}()
	}
	wg.Wait()

	if statuses[http.StatusOK] != 2 || statuses[http.StatusBadRequest] != 1 {
		t.Fatalf("expected two 200s and one 400, got %v", statuses)
	}
	if remainings[1] != 1 || remainings[0] != 1 {
		t.Errorf("expected remaining values {1, 0}, got %v", remainings)
	}
	if db.orderCount() != 2 {
		t.Errorf("expected 2 orders, got %d", db.orderCount())
	}
	if cache.stock[1] != 0 {
		t.Errorf("expected counter 0, got %d", cache.stock[1])
	}
	if db.durable[1] != 0 {
		t.Errorf("expected durable stock 0, got %d", db.durable[1])
	}
}
