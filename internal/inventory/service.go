package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock_pro/internal/kv"
)

// Recorder receives the outcome of every mutation. The metrics package implements it.
type Recorder interface {
	ObserveMutation(operation string, err error)
	ObservePersist(elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, error)       {}
func (nopRecorder) ObservePersist(time.Duration, error) {}

// Store is the single source of truth for products, sales and stock logs.
// Every mutation is persisted in full before it becomes visible.
type Store struct {
	mu       sync.Mutex
	backend  kv.Storage
	logger   *zap.Logger
	validate *validator.Validate
	recorder Recorder
	now      func() time.Time
	newID    func() string

	loaded bool
	state  Snapshot
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithRecorder attaches a mutation recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewStore creates a Store on top of backend. Call Load before mutating.
func NewStore(backend kv.Storage, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend:  backend,
		logger:   logger,
		validate: validator.New(),
		recorder: nopRecorder{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		state:    Snapshot{Products: []Product{}, Sales: []Sale{}, StockLogs: []StockLog{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the three collections from the backend, replacing the in-memory state.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := loadSnapshot(ctx, s.backend, s.logger)
	if err != nil {
		s.logger.Error("failed to load state", zap.Error(err))
		return err
	}
	s.state = snap
	s.loaded = true
	s.logger.Info("state loaded",
		zap.Int("products", len(snap.Products)),
		zap.Int("sales", len(snap.Sales)),
		zap.Int("stock_logs", len(snap.StockLogs)),
	)
	return nil
}

// mutate applies fn to a copy of the state, persists the copy and only then
// swaps it in. A failed validation or persist leaves the state untouched.
func (s *Store) mutate(ctx context.Context, op string, fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.recorder.ObserveMutation(op, ErrNotLoaded)
		return ErrNotLoaded
	}

	next := s.state.clone()
	if err := fn(&next); err != nil {
		s.recorder.ObserveMutation(op, err)
		return err
	}

	start := time.Now()
	err := persistSnapshot(ctx, s.backend, next)
	s.recorder.ObservePersist(time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to persist state", zap.String("operation", op), zap.Error(err))
		s.recorder.ObserveMutation(op, err)
		return err
	}

	s.state = next
	s.recorder.ObserveMutation(op, nil)
	return nil
}

// AddProduct appends a new product. A positive opening stock is recorded as an
// opening-balance stock log without being applied to the stock a second time.
func (s *Store) AddProduct(ctx context.Context, draft ProductDraft) (Product, error) {
	product := Product{
		ID:            s.newID(),
		Name:          strings.TrimSpace(draft.Name),
		Category:      draft.Category,
		SKU:           strings.TrimSpace(draft.SKU),
		PurchasePrice: draft.PurchasePrice,
		SellPrice:     draft.SellPrice,
		Stock:         draft.Stock,
		Supplier:      strings.TrimSpace(draft.Supplier),
		EntryDate:     s.now(),
		Images:        append([]string(nil), draft.Images...),
	}
	if err := s.checkProduct(product); err != nil {
		return Product{}, err
	}

	err := s.mutate(ctx, "add_product", func(next *Snapshot) error {
		if next.skuTaken(product.SKU, "") {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, product.SKU)
		}
		next.Products = append(next.Products, product)
		if product.Stock > 0 {
			log := StockLog{
				ID:          s.newID(),
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    product.Stock,
				UnitValue:   product.PurchasePrice,
				Kind:        ReceiptOpeningBalance,
				Date:        product.EntryDate,
			}
			next.StockLogs = append([]StockLog{log}, next.StockLogs...)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("stock", product.Stock),
	)
	return product, nil
}

// UpdateProduct replaces every field of the product with the same ID except the ID itself.
// A zero EntryDate keeps the stored one.
func (s *Store) UpdateProduct(ctx context.Context, product Product) (Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	product.Supplier = strings.TrimSpace(product.Supplier)
	product.Images = append([]string(nil), product.Images...)
	if err := s.checkProduct(product); err != nil {
		return Product{}, err
	}

	var updated Product
	err := s.mutate(ctx, "update_product", func(next *Snapshot) error {
		idx := next.productIndex(product.ID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, product.ID)
		}
		if next.skuTaken(product.SKU, product.ID) {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, product.SKU)
		}
		if product.EntryDate.IsZero() {
			product.EntryDate = next.Products[idx].EntryDate
		}
		next.Products[idx] = product
		updated = product
		return nil
	})
	if err != nil {
		return Product{}, err
	}

	s.logger.Info("product updated", zap.String("product_id", updated.ID), zap.Int("stock", updated.Stock))
	return updated, nil
}

// DeleteProduct removes a product. Sales and stock logs referencing it are
// kept: they carry their own copy of the product name and unit values.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	err := s.mutate(ctx, "delete_product", func(next *Snapshot) error {
		idx := next.productIndex(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		next.Products = append(next.Products[:idx], next.Products[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// AddSale records a sale, most recent first, and decrements the product's stock.
// The sale is rejected with an *InsufficientStockError when the product holds
// fewer units than requested.
func (s *Store) AddSale(ctx context.Context, draft SaleDraft) (Sale, error) {
	if err := s.validate.Struct(draft); err != nil {
		return Sale{}, validationError("%v", err)
	}
	if !draft.PaymentMethod.Valid() {
		return Sale{}, validationError("unknown payment method %q", draft.PaymentMethod)
	}
	if draft.SoldPrice.IsNegative() {
		return Sale{}, validationError("sold price must not be negative")
	}
	if draft.ShippingCost.IsNegative() {
		return Sale{}, validationError("shipping cost must not be negative")
	}

	var sale Sale
	err := s.mutate(ctx, "add_sale", func(next *Snapshot) error {
		idx := next.productIndex(draft.ProductID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, draft.ProductID)
		}
		product := &next.Products[idx]
		if draft.Quantity > product.Stock {
			return &InsufficientStockError{
				ProductID: product.ID,
				Requested: draft.Quantity,
				Available: product.Stock,
			}
		}

		qty := decimal.NewFromInt(int64(draft.Quantity))
		total := draft.SoldPrice.Mul(qty)
		sale = Sale{
			ID:            s.newID(),
			ProductID:     product.ID,
			ProductName:   product.Name,
			Quantity:      draft.Quantity,
			SoldPrice:     draft.SoldPrice,
			ShippingCost:  draft.ShippingCost,
			Total:         total,
			Profit:        total.Sub(product.PurchasePrice.Mul(qty)).Sub(draft.ShippingCost),
			PaymentMethod: draft.PaymentMethod,
			CustomerName:  strings.TrimSpace(draft.CustomerName),
			Date:          s.now(),
			ProofPhoto:    draft.ProofPhoto,
		}
		next.Sales = append([]Sale{sale}, next.Sales...)
		product.Stock -= draft.Quantity
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Warn("sale rejected",
				zap.String("product_id", stockErr.ProductID),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available),
			)
		}
		return Sale{}, err
	}

	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
		zap.String("total", sale.Total.String()),
		zap.String("profit", sale.Profit.String()),
	)
	return sale, nil
}

// AddStockLog records a stock receipt, most recent first. Receiving entries
// increment the product's stock; opening-balance entries are recorded only.
func (s *Store) AddStockLog(ctx context.Context, draft StockLogDraft) (StockLog, error) {
	if err := s.validate.Struct(draft); err != nil {
		return StockLog{}, validationError("%v", err)
	}
	if !draft.Kind.Valid() {
		return StockLog{}, validationError("unknown receipt kind %q", draft.Kind)
	}
	if draft.UnitValue.IsNegative() {
		return StockLog{}, validationError("unit value must not be negative")
	}

	var log StockLog
	err := s.mutate(ctx, "add_stock_log", func(next *Snapshot) error {
		idx := next.productIndex(draft.ProductID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, draft.ProductID)
		}
		product := &next.Products[idx]

		switch draft.Kind {
		case ReceiptReceiving:
			product.Stock += draft.Quantity
		case ReceiptOpeningBalance:
			// stock was set when the product was created
		}

		log = StockLog{
			ID:          s.newID(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    draft.Quantity,
			UnitValue:   draft.UnitValue,
			Kind:        draft.Kind,
			Photo:       draft.Photo,
			Date:        s.now(),
		}
		next.StockLogs = append([]StockLog{log}, next.StockLogs...)
		return nil
	})
	if err != nil {
		return StockLog{}, err
	}

	s.logger.Info("stock log created",
		zap.String("log_id", log.ID),
		zap.String("product_id", log.ProductID),
		zap.String("kind", string(log.Kind)),
		zap.Int("quantity", log.Quantity),
	)
	return log, nil
}

// Product returns the product with the given ID.
func (s *Store) Product(id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.productIndex(id)
	if idx < 0 {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.state.clone().Products[idx], nil
}

// Snapshot returns a copy of the current collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) checkProduct(p Product) error {
	if err := s.validate.Struct(p); err != nil {
		return validationError("%v", err)
	}
	if !p.Category.Valid() {
		return validationError("unknown category %q", p.Category)
	}
	if p.PurchasePrice.IsNegative() {
		return validationError("purchase price must not be negative")
	}
	if p.SellPrice.IsNegative() {
		return validationError("sell price must not be negative")
	}
	return nil
}

func (s *Snapshot) productIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) skuTaken(sku, exceptID string) bool {
	for _, p := range s.Products {
		if p.ID != exceptID && strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}
