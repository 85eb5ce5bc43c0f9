package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stock_pro/internal/kv"
)

// Slot names of the three persisted collections.
const (
	SlotProducts  = "starlink_products"
	SlotSales     = "starlink_sales"
	SlotStockLogs = "starlink_logs"
)

// loadSlot decodes one collection. Absent or unparsable payloads yield an
// empty collection; only backend failures are returned as errors.
func loadSlot[T any](ctx context.Context, backend kv.Storage, slot string, logger *zap.Logger) ([]T, error) {
	payload, err := backend.Get(ctx, slot)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		logger.Warn("discarding corrupt slot", zap.String("slot", slot), zap.Error(err))
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func loadSnapshot(ctx context.Context, backend kv.Storage, logger *zap.Logger) (Snapshot, error) {
	products, err := loadSlot[Product](ctx, backend, SlotProducts, logger)
	if err != nil {
		return Snapshot{}, err
	}
	sales, err := loadSlot[Sale](ctx, backend, SlotSales, logger)
	if err != nil {
		return Snapshot{}, err
	}
	logs, err := loadSlot[StockLog](ctx, backend, SlotStockLogs, logger)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Products: products, Sales: sales, StockLogs: logs}, nil
}

// persistSnapshot serialises every collection before writing any slot, so an
// encoding failure never leaves the backend half updated.
func persistSnapshot(ctx context.Context, backend kv.Storage, snap Snapshot) error {
	slots := []struct {
		name  string
		value any
	}{
		{SlotProducts, snap.Products},
		{SlotSales, snap.Sales},
		{SlotStockLogs, snap.StockLogs},
	}

	payloads := make([][]byte, len(slots))
	for i, s := range slots {
		b, err := json.Marshal(s.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.name, err)
		}
		payloads[i] = b
	}
	for i, s := range slots {
		if err := backend.Set(ctx, s.name, payloads[i]); err != nil {
			return fmt.Errorf("persist %s: %w", s.name, err)
		}
	}
	return nil
}
